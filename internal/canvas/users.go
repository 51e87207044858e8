package canvas

import (
	"context"
	"fmt"
)

type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GetUserBySISLogin looks a user up by sis_login_id (pennkey). A missing
// user is (nil, nil), not an error.
func (c *Client) GetUserBySISLogin(ctx context.Context, loginID string) (*User, error) {
	var user User
	err := c.get(ctx, fmt.Sprintf("/users/sis_login_id:%s", loginID), nil, &user)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

type createUserRequest struct {
	Pseudonym            pseudonym            `json:"pseudonym"`
	User                 userName             `json:"user"`
	CommunicationChannel communicationChannel `json:"communication_channel"`
}

type pseudonym struct {
	UniqueID  string `json:"unique_id"`
	SISUserID *int64 `json:"sis_user_id,omitempty"`
}

type userName struct {
	Name string `json:"name"`
}

type communicationChannel struct {
	Type    string `json:"type"`
	Address string `json:"address"`
}

// CreateUser creates a Canvas user under the main account with the pennkey
// as login id and the penn_id as SIS user id.
func (c *Client) CreateUser(ctx context.Context, pennkey string, pennID *int64, fullName, email string) (*User, error) {
	body := createUserRequest{
		Pseudonym:            pseudonym{UniqueID: pennkey, SISUserID: pennID},
		User:                 userName{Name: fullName},
		CommunicationChannel: communicationChannel{Type: "email", Address: email},
	}
	var user User
	path := fmt.Sprintf("/accounts/%d/users", MainAccountID)
	if err := c.send(ctx, "POST", path, body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
