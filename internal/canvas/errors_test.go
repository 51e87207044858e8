package canvas

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"plain 409", &APIError{StatusCode: 409}, true},
		{"sis id collision as 400", &APIError{StatusCode: 400, Message: `{"errors":{"sis_source_id":[{"message":"SIS ID \"BAN_HIST-1700-001 202510\" is already in use"}]}}`}, true},
		{"already exists as 400", &APIError{StatusCode: 400, Message: "section already exists"}, true},
		{"unrelated 400", &APIError{StatusCode: 400, Message: "term_id is invalid"}, false},
		{"not found", &APIError{StatusCode: 404}, false},
		{"wrapped conflict", fmt.Errorf("create course: %w", &APIError{StatusCode: 409}), true},
		{"non api error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConflict(tt.err))
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", &APIError{StatusCode: 500}, true},
		{"bad gateway", &APIError{StatusCode: 502}, true},
		{"throttled", &APIError{StatusCode: 429}, true},
		{"rate limited as 403", &APIError{StatusCode: 403, Message: "403 Forbidden (Rate Limit Exceeded)"}, true},
		{"plain forbidden", &APIError{StatusCode: 403, Message: "403 Forbidden"}, false},
		{"transport failure", &APIError{Message: "dial tcp: connection refused"}, true},
		{"not found", &APIError{StatusCode: 404}, false},
		{"conflict", &APIError{StatusCode: 409}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&APIError{StatusCode: 404}))
	assert.True(t, IsNotFound(fmt.Errorf("get course: %w", &APIError{StatusCode: 404})))
	assert.False(t, IsNotFound(&APIError{StatusCode: 500}))
	assert.False(t, IsNotFound(errors.New("boom")))
}
