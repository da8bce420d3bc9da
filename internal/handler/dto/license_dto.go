package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/makkenzo/license-checkout-service/internal/domain/license"
)

type LicenseResponse struct {
	ID            uuid.UUID `json:"id"`
	LicenseKey    string    `json:"license_key"`
	PurchaseEmail string    `json:"purchase_email"`
	CustomerName  *string   `json:"customer_name,omitempty"`
	IsActive      bool      `json:"is_active"`
	MaxDevices    int       `json:"max_devices"`
	SessionID     *string   `json:"session_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewLicenseResponse(lic *license.License) *LicenseResponse {
	resp := &LicenseResponse{
		ID:            lic.ID,
		LicenseKey:    lic.LicenseKey,
		PurchaseEmail: lic.PurchaseEmail,
		IsActive:      lic.IsActive,
		MaxDevices:    lic.MaxDevices,
		CreatedAt:     lic.CreatedAt,
	}
	if lic.CustomerName.Valid {
		resp.CustomerName = &lic.CustomerName.String
	}
	if lic.Notes.Valid {
		resp.SessionID = &lic.Notes.String
	}
	return resp
}

type ListLicensesRequest struct {
	Email  *string `form:"email" binding:"omitempty,email"`
	Active *bool   `form:"active"`
	Limit  int     `form:"limit,default=20" binding:"omitempty,gte=0,lte=200"`
	Offset int     `form:"offset,default=0" binding:"omitempty,gte=0"`
}

type PaginatedLicenseResponse struct {
	Licenses   []*LicenseResponse `json:"licenses"`
	TotalCount int64              `json:"totalCount"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
}

type UpdateLicenseStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type ResendLicenseResponse struct {
	TaskID string `json:"task_id"`
}

type LicenseSummaryResponse struct {
	TotalLicenses    int64 `json:"totalLicenses"`
	ActiveLicenses   int64 `json:"activeLicenses"`
	InactiveLicenses int64 `json:"inactiveLicenses"`
	IssuedLast24h    int64 `json:"issuedLast24h"`
}

type ValidateLicenseRequest struct {
	LicenseKey string `json:"license_key" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
}

type ValidateLicenseResponse struct {
	IsValid         bool       `json:"is_valid"`
	Reason          string     `json:"reason,omitempty"`
	MaxDevices      *int       `json:"max_devices,omitempty"`
	ActivationToken string     `json:"activation_token,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

type VerifyTokenRequest struct {
	ActivationToken string `json:"activation_token" binding:"required"`
}

type VerifyTokenResponse struct {
	IsValid    bool       `json:"is_valid"`
	Reason     string     `json:"reason,omitempty"`
	LicenseKey string     `json:"license_key,omitempty"`
	MaxDevices *int       `json:"max_devices,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}
