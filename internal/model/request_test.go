package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from RequestStatus
		to   RequestStatus
		want bool
	}{
		{"submitted to approved", StatusSubmitted, StatusApproved, true},
		{"submitted to canceled", StatusSubmitted, StatusCanceled, true},
		{"submitted straight to completed", StatusSubmitted, StatusCompleted, false},
		{"approved to in process", StatusApproved, StatusInProcess, true},
		{"in process to completed", StatusInProcess, StatusCompleted, true},
		{"in process to error", StatusInProcess, StatusError, true},
		{"in process back to approved", StatusInProcess, StatusApproved, false},
		{"error retried to approved", StatusError, StatusApproved, true},
		{"error cannot reenter in process", StatusError, StatusInProcess, false},
		{"completed to locked", StatusCompleted, StatusLocked, true},
		{"completed back to submitted", StatusCompleted, StatusSubmitted, false},
		{"canceled is terminal", StatusCanceled, StatusApproved, false},
		{"canceled cannot be locked", StatusCanceled, StatusLocked, false},
		{"anything else can be locked", StatusError, StatusLocked, true},
		{"locked releases to approved", StatusLocked, StatusApproved, true},
		{"locked releases to canceled", StatusLocked, StatusCanceled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestRequest_AppendProcessNote(t *testing.T) {
	request := &Request{}

	request.AppendProcessNote("failed to create section")
	assert.Equal(t, "failed to create section", request.ProcessNotes)

	request.AppendProcessNote("cancelled")
	assert.Equal(t, "failed to create section, cancelled", request.ProcessNotes)
}

func TestRole_CanvasEnrollmentType(t *testing.T) {
	assert.Equal(t, "TeacherEnrollment", RoleInstructor.CanvasEnrollmentType())
	assert.Equal(t, "TaEnrollment", RoleTA.CanvasEnrollmentType())
	assert.Equal(t, "DesignerEnrollment", RoleDesigner.CanvasEnrollmentType())

	// Librarians ride on the designer type; the custom role id carries the
	// distinction.
	assert.Equal(t, "DesignerEnrollment", RoleLibrarian.CanvasEnrollmentType())
}
