package models

import "time"

// Principal is an authenticated user. Password holds the argon2id hash
// and is only ever touched by the identity layer.
type Principal struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PrincipalSummary struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

func (p *Principal) Summary() PrincipalSummary {
	return PrincipalSummary{
		ID:        p.ID,
		Email:     p.Email,
		Name:      p.Name,
		AvatarURL: p.AvatarURL,
	}
}
