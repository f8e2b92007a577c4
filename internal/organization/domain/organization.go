package domain

import (
	"errors"
	"time"
)

// Organization is a tenant provisioned by the upstream cloud server.
type Organization struct {
	ID         string
	Name       string
	Subdomain  string // unique
	Size       Size
	Plan       Plan
	IndustryID *int
	MediaID    *int // logo asset in the media service
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Size string

const (
	Size0To10    Size = "0-10"
	Size10To20   Size = "10-20"
	Size20To50   Size = "20-50"
	Size50To100  Size = "50-100"
	Size100To500 Size = "100-500"
	Size500Plus  Size = "500+"
)

// Valid reports whether s is a known size bucket.
func (s Size) Valid() bool {
	switch s {
	case Size0To10, Size10To20, Size20To50, Size50To100, Size100To500, Size500Plus:
		return true
	}
	return false
}

type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

// Validate validates the organization for persistence and fills defaults.
func (o *Organization) Validate() error {
	if o.Name == "" {
		return errors.New("name is required")
	}
	if o.Subdomain == "" {
		return errors.New("subdomain is required")
	}
	if !o.Size.Valid() {
		return errors.New("unknown size")
	}
	if o.Plan == "" {
		o.Plan = PlanFree
	}
	if !o.Plan.Valid() {
		return errors.New("unknown plan")
	}
	return nil
}
