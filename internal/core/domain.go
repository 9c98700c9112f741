package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"

	ShareOwner  ShareRole = "owner"
	ShareEditor ShareRole = "editor"
	ShareViewer ShareRole = "viewer"

	PaymentCash PaymentMethod = "cash"
	PaymentUPI  PaymentMethod = "upi"
)

type (
	Role          string
	ShareRole     string
	PaymentMethod string

	User struct {
		ID    string `json:"_id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  Role   `json:"role"`
	}

	// Solution is a budget grouping (a trip, an event) that expenses and
	// collected funds are recorded against.
	Solution struct {
		ID          string  `json:"_id"`
		Name        string  `json:"name"`
		Year        int     `json:"year"`
		Description string  `json:"description,omitempty"`
		Owner       *User   `json:"owner,omitempty"`
		SharedWith  []Share `json:"sharedWith,omitempty"`
	}

	Share struct {
		User string    `json:"user"`
		Name string    `json:"name,omitempty"`
		Role ShareRole `json:"role"`
	}

	Payment struct {
		PaidAmount        decimal.Decimal `json:"paidAmount"`
		PaymentMethod     PaymentMethod   `json:"paymentMethod"`
		UPIScreenshotURLs []string        `json:"upiScreenshotUrls,omitempty"`
	}

	Expense struct {
		ID            string          `json:"_id"`
		Name          string          `json:"name"`
		Category      string          `json:"category"`
		Amount        decimal.Decimal `json:"amount"`
		Payments      []Payment       `json:"payments"`
		PaidBy        *User           `json:"paidBy,omitempty"`
		PaymentStatus string          `json:"paymentStatus,omitempty"`
		AdvancePaid   decimal.Decimal `json:"advancePaid"`
		PendingAmount decimal.Decimal `json:"pendingAmount"`
		SolutionCard  string          `json:"solutionCard,omitempty"`
		CreatedAt     time.Time       `json:"createdAt"`
	}

	CollectedCash struct {
		ID            string          `json:"_id"`
		Name          string          `json:"name"`
		Amount        decimal.Decimal `json:"amount"`
		SolutionCard  string          `json:"solutionCardId,omitempty"`
		CollectedDate time.Time       `json:"collectedDate"`
		UpdatedDate   time.Time       `json:"updatedDate"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyName          = errors.New("name is required")
	ErrEmptyCategory      = errors.New("category is required")
	ErrInvalidYear        = errors.New("invalid year")
	ErrMissingScreenshot  = errors.New("please upload at least one UPI screenshot")
	ErrInvalidPaymentType = errors.New("invalid payment method")
	ErrPaidExceedsAmount  = errors.New("paid amount exceeds expense amount")
	ErrInvalidRole        = errors.New("invalid role")
	ErrNameTooLong        = errors.New("name too long (max 200 characters)")
	ErrDescriptionTooLong = errors.New("description too long (max 500 characters)")
)

// Valid reports whether r is one of the account roles the backend knows.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Roles lists the account roles in privilege order.
func Roles() []Role {
	return []Role{RoleUser, RoleAdmin, RoleSuperAdmin}
}

func (r ShareRole) Valid() bool {
	switch r {
	case ShareOwner, ShareEditor, ShareViewer:
		return true
	}
	return false
}

// TotalPaid sums every payment recorded against the expense.
func (e Expense) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range e.Payments {
		total = total.Add(p.PaidAmount)
	}
	return total
}

// Pending is the part of the amount not covered by payments yet.
func (e Expense) Pending() decimal.Decimal {
	return e.Amount.Sub(e.TotalPaid())
}

// Screenshots returns every UPI screenshot URL across payments.
func (e Expense) Screenshots() []string {
	var urls []string
	for _, p := range e.Payments {
		if p.PaymentMethod == PaymentUPI {
			urls = append(urls, p.UPIScreenshotURLs...)
		}
	}
	return urls
}

func (e Expense) HasScreenshots() bool {
	return len(e.Screenshots()) > 0
}

// RoleOf returns the role userID holds on the solution. The owner is
// always ShareOwner; users it is not shared with get "".
func (s Solution) RoleOf(userID string) ShareRole {
	if userID == "" {
		return ""
	}
	if s.Owner != nil && s.Owner.ID == userID {
		return ShareOwner
	}
	for _, sh := range s.SharedWith {
		if sh.User == userID {
			return sh.Role
		}
	}
	return ""
}

// Editable reports whether userID may change the solution's records.
func (s Solution) Editable(userID string) bool {
	r := s.RoleOf(userID)
	return r == ShareOwner || r == ShareEditor
}

func (s Solution) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if len(s.Name) > 200 {
		return ErrNameTooLong
	}
	if s.Year < 1900 || s.Year > 9999 {
		return ErrInvalidYear
	}
	if len(s.Description) > 500 {
		return ErrDescriptionTooLong
	}
	return nil
}

func (c CollectedCash) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 200 {
		return ErrNameTooLong
	}
	if !c.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// ExpenseDraft is the form payload for creating or updating an expense.
// New screenshots travel as multipart files next to it.
type ExpenseDraft struct {
	Name                string
	Category            string
	Amount              decimal.Decimal
	PaidAmount          decimal.Decimal
	PaymentMethod       PaymentMethod
	ExistingScreenshots []string
	NewScreenshots      int
}

func (d ExpenseDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrEmptyName
	}
	if len(d.Name) > 200 {
		return ErrNameTooLong
	}
	if strings.TrimSpace(d.Category) == "" {
		return ErrEmptyCategory
	}
	if !d.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if d.PaidAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if d.PaidAmount.GreaterThan(d.Amount) {
		return ErrPaidExceedsAmount
	}
	switch d.PaymentMethod {
	case PaymentCash:
	case PaymentUPI:
		if d.NewScreenshots == 0 && len(d.ExistingScreenshots) == 0 {
			return ErrMissingScreenshot
		}
	default:
		return ErrInvalidPaymentType
	}
	return nil
}

// Payments builds the single payment entry the backend expects.
func (d ExpenseDraft) Payments() []Payment {
	return []Payment{{
		PaidAmount:        d.PaidAmount,
		PaymentMethod:     d.PaymentMethod,
		UPIScreenshotURLs: d.ExistingScreenshots,
	}}
}

// MergeShares builds the sharedWith list sent when sharing is saved:
// owners first and untouched, then the newly selected users, then the
// remaining existing shares. A user appears once; a new selection wins
// over an existing entry, and owners cannot be re-roled.
func MergeShares(existing, selected []Share) []Share {
	out := make([]Share, 0, len(existing)+len(selected))
	seen := map[string]bool{}
	for _, s := range existing {
		if s.Role == ShareOwner && !seen[s.User] {
			seen[s.User] = true
			out = append(out, s)
		}
	}
	for _, group := range [][]Share{selected, existing} {
		for _, s := range group {
			if seen[s.User] || s.Role == ShareOwner || s.User == "" {
				continue
			}
			seen[s.User] = true
			out = append(out, s)
		}
	}
	return out
}
