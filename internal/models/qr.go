package models

type GenerateQRRequest struct {
	MessID          uint `json:"mess_id" validate:"required"`
	ForceRegenerate bool `json:"force_regenerate"`
}

type GenerateQRResponse struct {
	QRCode     string `json:"qr_code"`
	QRCodeData string `json:"qr_code_data"`
	IsNew      bool   `json:"is_new"`
}

type VerifyMembershipRequest struct {
	QRCodeData string `json:"qr_code_data" validate:"required"`
}

type VerifyByOwnerRequest struct {
	MessID       uint `json:"mess_id" validate:"required"`
	TargetUserID uint `json:"target_user_id" validate:"required"`
}

type MembershipPlanInfo struct {
	MealPlanID uint   `json:"meal_plan_id"`
	PlanName   string `json:"plan_name"`
	ValidUntil string `json:"valid_until,omitempty"`
}

type VerifiedMember struct {
	UserID   uint                 `json:"user_id"`
	FullName string               `json:"full_name"`
	Email    string               `json:"email"`
	MessID   uint                 `json:"mess_id"`
	MessName string               `json:"mess_name"`
	Plans    []MembershipPlanInfo `json:"plans"`
}

// VerificationResult never reveals which token field failed validation.
//
// IsValid answers the question each path actually asks. On a scan it means
// the token is genuine: a real token scanned by a non-member yields IsValid
// true with a nil Member and an explanatory Message. On the owner's manual
// check there is no token, so IsValid means the target holds an active
// membership.
type VerificationResult struct {
	IsValid bool            `json:"is_valid"`
	Member  *VerifiedMember `json:"member,omitempty"`
	Message string          `json:"message,omitempty"`
}
