package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SATANA888791/mail-registry/internal/core/domain"
	"github.com/SATANA888791/mail-registry/internal/infra/logger"
	"github.com/SATANA888791/mail-registry/internal/usecase"
)

// ErrorResponse represents a generic error payload with a request ID for
// correlation.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error response with the request ID from context.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: requestIDFromContext(c.Request.Context()),
	}
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(logger.RequestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	Account     AccountSummary `json:"account"`
}

// BlockedResponse is returned when an account is refused due to a block.
type BlockedResponse struct {
	Error            string             `json:"error"`
	Status           domain.BlockStatus `json:"status"`
	RemainingMinutes int                `json:"remaining_minutes,omitempty"`
	RequestID        string             `json:"request_id,omitempty"`
}

// AccountSummary describes a minimal view of an account returned by the API.
type AccountSummary struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	DisplayName string      `json:"display_name,omitempty"`
	Email       string      `json:"email,omitempty"`
	Role        domain.Role `json:"role"`
}

// NewAccountSummary converts an account to its API view.
func NewAccountSummary(account domain.Account) AccountSummary {
	return AccountSummary{
		ID:          account.ID,
		Username:    account.Username,
		DisplayName: account.DisplayName,
		Email:       account.Email,
		Role:        account.Role,
	}
}

// AccountDetail is one row of the admin user list.
type AccountDetail struct {
	AccountSummary
	Status           domain.BlockStatus `json:"status"`
	RemainingMinutes int                `json:"remaining_minutes,omitempty"`
	FailedAttempts   int                `json:"failed_attempts"`
	Online           bool               `json:"online"`
	LastSeen         *time.Time         `json:"last_seen,omitempty"`
	BlockedUntil     *time.Time         `json:"blocked_until,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

// NewAccountDetail converts an admin list row to its API view.
func NewAccountDetail(view usecase.AccountView) AccountDetail {
	return AccountDetail{
		AccountSummary:   NewAccountSummary(view.Account),
		Status:           view.Status,
		RemainingMinutes: view.RemainingMinutes,
		FailedAttempts:   view.Account.FailedAttempts,
		Online:           view.Online,
		LastSeen:         view.LastSeen,
		BlockedUntil:     view.Account.BlockedUntil,
		CreatedAt:        view.Account.CreatedAt,
	}
}

// CreateAccountRequest defines the admin account creation payload.
type CreateAccountRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"omitempty,email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password" binding:"required,min=8"`
	Role        string `json:"role"`
}

// UpdateAccountRequest defines the admin account update payload. An empty
// password keeps the current credential.
type UpdateAccountRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"omitempty,email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password" binding:"omitempty,min=8"`
	Role        string `json:"role"`
}

// BlockAccountRequest defines the admin block payload.
type BlockAccountRequest struct {
	Class         string `json:"class" binding:"required"`
	CustomMinutes int    `json:"custom_minutes"`
	Reason        string `json:"reason"`
}

// BlockEventView is one block-history ledger entry.
type BlockEventView struct {
	ID           string     `json:"id"`
	AccountID    string     `json:"account_id"`
	ActorID      *string    `json:"actor_id,omitempty"`
	Action       string     `json:"action"`
	Class        string     `json:"class,omitempty"`
	Reason       string     `json:"reason,omitempty"`
	BlockedUntil *time.Time `json:"blocked_until,omitempty"`
	IsPermanent  bool       `json:"is_permanent"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewBlockEventView converts a ledger entry to its API view.
func NewBlockEventView(event domain.BlockEvent) BlockEventView {
	return BlockEventView{
		ID:           event.ID,
		AccountID:    event.AccountID,
		ActorID:      event.ActorID,
		Action:       string(event.Action),
		Class:        string(event.Class),
		Reason:       event.Reason,
		BlockedUntil: event.BlockedUntil,
		IsPermanent:  event.IsPermanent,
		CreatedAt:    event.CreatedAt,
	}
}

// LoginAttemptView is one attempt-ledger entry.
type LoginAttemptView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	IP        string    `json:"ip,omitempty"`
	AccountID *string   `json:"account_id,omitempty"`
	Succeeded bool      `json:"succeeded"`
	CreatedAt time.Time `json:"created_at"`
}

// NewLoginAttemptView converts a ledger entry to its API view.
func NewLoginAttemptView(attempt domain.LoginAttempt) LoginAttemptView {
	return LoginAttemptView{
		ID:        attempt.ID,
		Username:  attempt.Username,
		IP:        attempt.IP,
		AccountID: attempt.AccountID,
		Succeeded: attempt.Succeeded,
		CreatedAt: attempt.CreatedAt,
	}
}

// DashboardNumbersResponse carries the display numbers shown on the
// registration forms.
type DashboardNumbersResponse struct {
	NextOutgoing string `json:"next_outgoing"`
	NextIncoming string `json:"next_incoming"`
}

// ResetSequenceResponse reports what a counter reset actually did.
type ResetSequenceResponse struct {
	Domain  string `json:"domain"`
	Outcome string `json:"outcome"`
}

// RegisterOutgoingRequest defines the outgoing letter payload.
type RegisterOutgoingRequest struct {
	Subject     string `json:"subject" binding:"required"`
	Recipient   string `json:"recipient" binding:"required"`
	IsProtected bool   `json:"is_protected"`
}

// RegisterIncomingRequest defines the incoming letter payload.
type RegisterIncomingRequest struct {
	Subject      string `json:"subject" binding:"required"`
	Organization string `json:"organization" binding:"required"`
	ForwardedTo  string `json:"forwarded_to"`
}

// AttachRequest defines the attachment metadata payload.
type AttachRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// LetterView is the API representation of a registered letter.
type LetterView struct {
	ID           string    `json:"id"`
	Domain       string    `json:"domain"`
	Number       string    `json:"number"`
	NumberFS     string    `json:"number_fs"`
	SequenceNum  int64     `json:"sequence_num"`
	Year         int       `json:"year"`
	Subject      string    `json:"subject"`
	Recipient    *string   `json:"recipient,omitempty"`
	Organization *string   `json:"organization,omitempty"`
	ForwardedTo  *string   `json:"forwarded_to,omitempty"`
	IsProtected  bool      `json:"is_protected"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewLetterView converts a letter to its API view.
func NewLetterView(letter domain.Letter) LetterView {
	number := domain.DocumentNumber{
		Domain:   letter.Domain,
		Sequence: letter.SequenceNum,
		Year:     letter.Year,
	}
	return LetterView{
		ID:           letter.ID,
		Domain:       string(letter.Domain),
		Number:       letter.Number,
		NumberFS:     number.FileSystem(),
		SequenceNum:  letter.SequenceNum,
		Year:         letter.Year,
		Subject:      letter.Subject,
		Recipient:    letter.Recipient,
		Organization: letter.Organization,
		ForwardedTo:  letter.ForwardedTo,
		IsProtected:  letter.IsProtected,
		CreatedAt:    letter.CreatedAt,
	}
}

// AttachmentView is the API representation of attachment metadata.
type AttachmentView struct {
	ID             string    `json:"id"`
	OwnerKind      string    `json:"owner_kind"`
	OwnerID        string    `json:"owner_id"`
	Filename       string    `json:"filename"`
	StoredFilename string    `json:"stored_filename"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

// NewAttachmentView converts attachment metadata to its API view.
func NewAttachmentView(attachment domain.Attachment) AttachmentView {
	return AttachmentView{
		ID:             attachment.ID,
		OwnerKind:      string(attachment.OwnerKind),
		OwnerID:        attachment.OwnerID,
		Filename:       attachment.Filename,
		StoredFilename: attachment.StoredFilename,
		UploadedAt:     attachment.UploadedAt,
	}
}
