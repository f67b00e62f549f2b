package model

import "time"

// Status is the lifecycle state of a learning request.
//
//	pending ──owner──▶ accepted
//	   │    ──owner──▶ rejected
//	   └──requester──▶ (deleted)
//
// accepted and rejected are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Decision reports whether s is a status an owner may move a pending
// request to.
func (s Status) Decision() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Request is a directed ask from a requester to learn a skill from its owner.
//
// SkillName, OwnerID and RequesterName come from joins on skills and users.
// OwnerID is what authorization decisions for accept/reject are made on.
type Request struct {
	ID            string    `json:"id"            db:"id"`
	SkillID       string    `json:"skillId"       db:"skill_id"`
	SkillName     string    `json:"skillName"     db:"skill_name"`
	OwnerID       string    `json:"ownerId"       db:"owner_id"`
	RequesterID   string    `json:"requesterId"   db:"requester_id"`
	RequesterName string    `json:"requesterName" db:"requester_name"`
	Message       string    `json:"message"       db:"message"`
	Status        Status    `json:"status"        db:"status"`
	CreatedAt     time.Time `json:"createdAt"     db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt"     db:"updated_at"`
}
