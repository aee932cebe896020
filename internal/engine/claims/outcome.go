package claims

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindAllowed  Kind = "allowed"
	KindBlocked  Kind = "blocked"
	KindRejected Kind = "rejected"
	KindUnknown  Kind = "unknown"
)

// Outcome is the result of a claim check. Callers switch on Kind:
//
//	allowed  - proceed; ClaimAsOwner is set when the requester already owns it
//	blocked  - a human has to verify the requester; Message and ContactURL set
//	rejected - the name belongs to someone else; Message set
//	unknown  - no ownership signal; IsNew says whether the slug is free
type Outcome struct {
	Kind         Kind   `json:"kind"`
	Message      string `json:"message,omitempty"`
	ContactURL   string `json:"contact_url,omitempty"`
	IsNew        bool   `json:"is_new"`
	ClaimAsOwner bool   `json:"claim_as_owner,omitempty"`
}

func Allowed() Outcome { return Outcome{Kind: KindAllowed} }

func AllowedAsOwner() Outcome { return Outcome{Kind: KindAllowed, ClaimAsOwner: true} }

func Blocked(message, contactURL string) Outcome {
	return Outcome{Kind: KindBlocked, Message: message, ContactURL: contactURL}
}

func Rejected(message string) Outcome { return Outcome{Kind: KindRejected, Message: message} }

func Unknown(isNew bool) Outcome { return Outcome{Kind: KindUnknown, IsNew: isNew} }

// Permitted collapses the outcome to the boolean the signup form acts on.
// Blocked outcomes are never permitted.
func (o Outcome) Permitted() bool {
	switch o.Kind {
	case KindAllowed:
		return true
	case KindUnknown:
		return o.IsNew
	default:
		return false
	}
}

const (
	MsgOwnerUnresolved = "An admin for this organization already exists. Please contact us for assistance."
	MsgOrgHasOwner     = "This organization already has an owner."
	MsgVerifyEmail     = "We could not verify your organization email address. Please contact support so we can add you."
	MsgVerifyIdentity  = "We need to verify your identity before you can be added to this organization. Please contact support."
	MsgNameRequired    = "Organization name is required."
	MsgNameTaken       = "An organization with this name already exists."
)

var (
	ErrNameTaken    = errors.New("organization name already taken")
	ErrNameRequired = errors.New("organization name is required")
	ErrUserNotFound = errors.New("user not found")
)

// BlockedError carries a blocked outcome through error returns.
type BlockedError struct {
	Message    string
	ContactURL string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("claim blocked: %s", e.Message)
}

// Err returns the error form of non-permitting outcomes: *BlockedError for
// blocked, ErrNameTaken for rejected or an existing unclaimed name, nil
// otherwise.
func (o Outcome) Err() error {
	switch {
	case o.Kind == KindBlocked:
		return &BlockedError{Message: o.Message, ContactURL: o.ContactURL}
	case o.Kind == KindRejected, o.Kind == KindUnknown && !o.IsNew:
		return ErrNameTaken
	}
	return nil
}
