package models

import (
	"github.com/google/uuid"
	"github.com/relabs-tech/dysonrest/core/validation"
)

// Challenge is returned when a login is started. Its id must be handed back
// together with the one-time code to finish the login.
type Challenge struct {
	ChallengeID uuid.UUID
}

// ChallengeFromMap builds a Challenge from m.
func ChallengeFromMap(m map[string]any) (Challenge, error) {
	id, err := validation.UUID(m, "challengeId", "")
	if err != nil {
		return Challenge{}, err
	}
	return Challenge{ChallengeID: id}, nil
}

// ToMap returns the wire representation of c.
func (c Challenge) ToMap() map[string]any {
	return map[string]any{"challengeId": c.ChallengeID.String()}
}

// UserStatus tells whether an account exists and how it logs in.
type UserStatus struct {
	AccountStatus        AccountStatus
	AuthenticationMethod AuthenticationMethod
}

// UserStatusFromMap builds a UserStatus from m.
func UserStatusFromMap(m map[string]any) (UserStatus, error) {
	var s UserStatus
	var err error
	if s.AccountStatus, err = validation.Enum(m, "accountStatus", "",
		AccountStatusActive, AccountStatusUnregistered); err != nil {
		return UserStatus{}, err
	}
	if s.AuthenticationMethod, err = validation.Enum(m, "authenticationMethod", "",
		AuthenticationMethodEmailPassword2FA, AuthenticationMethodMobilePassword2FA); err != nil {
		return UserStatus{}, err
	}
	return s, nil
}

// ToMap returns the wire representation of s.
func (s UserStatus) ToMap() map[string]any {
	return map[string]any{
		"accountStatus":        string(s.AccountStatus),
		"authenticationMethod": string(s.AuthenticationMethod),
	}
}

// LoginInformation is the result of a completed login.
type LoginInformation struct {
	Account   uuid.UUID
	Token     string
	TokenType TokenType
}

// LoginInformationFromMap builds LoginInformation from m.
func LoginInformationFromMap(m map[string]any) (LoginInformation, error) {
	var l LoginInformation
	var err error
	if l.Account, err = validation.UUID(m, "account", ""); err != nil {
		return LoginInformation{}, err
	}
	if l.Token, err = validation.String(m, "token", ""); err != nil {
		return LoginInformation{}, err
	}
	if l.TokenType, err = validation.Enum(m, "tokenType", "", TokenTypeBearer); err != nil {
		return LoginInformation{}, err
	}
	return l, nil
}

// ToMap returns the wire representation of l.
func (l LoginInformation) ToMap() map[string]any {
	return map[string]any{
		"account":   l.Account.String(),
		"token":     l.Token,
		"tokenType": string(l.TokenType),
	}
}

// PendingRelease is the firmware release waiting to be installed on a device.
type PendingRelease struct {
	Version string
	Pushed  bool
}

// PendingReleaseFromMap builds a PendingRelease from m.
func PendingReleaseFromMap(m map[string]any) (PendingRelease, error) {
	var r PendingRelease
	var err error
	if r.Version, err = validation.String(m, "version", ""); err != nil {
		return PendingRelease{}, err
	}
	if r.Pushed, err = validation.Bool(m, "pushed", ""); err != nil {
		return PendingRelease{}, err
	}
	return r, nil
}

// ToMap returns the wire representation of r.
func (r PendingRelease) ToMap() map[string]any {
	return map[string]any{
		"version": r.Version,
		"pushed":  r.Pushed,
	}
}
