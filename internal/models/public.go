package models

import "time"

// PublicAccount is the only account shape returned to clients.
type PublicAccount struct {
	ID                 string      `json:"id" example:"3f1c2a9e-8d4b-4c1e-9a57-0b6f1d2e7c11"`
	Name               string      `json:"name" example:"Ann"`
	Surname            string      `json:"surname" example:"Lee"`
	Email              string      `json:"email" example:"a@x.com"`
	Phone              string      `json:"phone,omitempty" example:"+79001234567"`
	Role               Role        `json:"role" example:"student"`
	IsEmailVerified    bool        `json:"isEmailVerified"`
	IsPhoneVerified    bool        `json:"isPhoneVerified"`
	IsTwoFactorEnabled bool        `json:"isTwoFactorEnabled"`
	LinkedUsers        []string    `json:"linkedUsers"`
	Profile            Profile     `json:"profile"`
	Preferences        Preferences `json:"preferences"`
	LastLogin          *time.Time  `json:"lastLogin,omitempty"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

// LinkedAccount is the reduced projection used for linked accounts and directory search.
type LinkedAccount struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
	Role    Role   `json:"role"`
	Grade   string `json:"grade"`
}

func (a *Account) Public() PublicAccount {
	c := a.Clone()
	return PublicAccount{
		ID:                 c.ID,
		Name:               c.Name,
		Surname:            c.Surname,
		Email:              c.Email,
		Phone:              c.Phone,
		Role:               c.Role,
		IsEmailVerified:    c.IsEmailVerified,
		IsPhoneVerified:    c.IsPhoneVerified,
		IsTwoFactorEnabled: c.IsTwoFactorEnabled,
		LinkedUsers:        c.LinkedUsers,
		Profile:            c.Profile,
		Preferences:        c.Preferences,
		LastLogin:          c.LastLogin,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

func (a *Account) Linked() LinkedAccount {
	return LinkedAccount{
		ID:      a.ID,
		Name:    a.Name,
		Surname: a.Surname,
		Email:   a.Email,
		Role:    a.Role,
		Grade:   a.Profile.Grade,
	}
}
