package model

import "time"

// Friendship is a directed edge: OwnerID considers FriendID a friend.
// The reverse edge is a separate row and is never created implicitly.
type Friendship struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	FriendID  string    `json:"friendId"`
	CreatedAt time.Time `json:"createdAt"`
}
