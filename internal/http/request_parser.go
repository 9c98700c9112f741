// Package http serves the budgetbook web client.
//
// This file holds the form readers shared by the page handlers: input
// sanitizing, multipart uploads, share selections and the mapping from
// validation errors to form fields.
package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"budgetbook/internal/api"
	"budgetbook/internal/core"
)

const (
	maxFormBytes       = 32 << 20
	maxScreenshotBytes = 5 << 20
	maxScreenshots     = 5
	screenshotField    = "upiScreenshots"
)

var (
	ErrTooManyFiles = errors.New("too many screenshots (max 5)")
	ErrFileTooLarge = errors.New("screenshot too large (max 5 MB)")
	ErrNotAnImage   = errors.New("screenshots must be images")
)

// FormErrors maps a form field to the message shown next to it.
type FormErrors map[string]string

func (f FormErrors) Any() bool { return len(f) > 0 }

// Add records err against its field; errors without a field go under "".
func (f FormErrors) Add(err error) {
	if err == nil {
		return
	}
	f[fieldFor(err)] = err.Error()
}

// fieldFor names the form field a validation error belongs to. Errors that
// are not validation errors map to "".
func fieldFor(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyName), errors.Is(err, core.ErrNameTooLong):
		return "name"
	case errors.Is(err, core.ErrEmptyCategory):
		return "category"
	case errors.Is(err, core.ErrInvalidAmount):
		return "amount"
	case errors.Is(err, core.ErrPaidExceedsAmount):
		return "paidAmount"
	case errors.Is(err, core.ErrInvalidPaymentType):
		return "paymentMethod"
	case errors.Is(err, core.ErrMissingScreenshot), errors.Is(err, ErrTooManyFiles),
		errors.Is(err, ErrFileTooLarge), errors.Is(err, ErrNotAnImage):
		return "screenshots"
	case errors.Is(err, core.ErrInvalidYear):
		return "year"
	case errors.Is(err, core.ErrDescriptionTooLong):
		return "description"
	case errors.Is(err, core.ErrInvalidEmail):
		return "email"
	case errors.Is(err, core.ErrEmptyPassword), errors.Is(err, core.ErrPasswordTooShort),
		errors.Is(err, core.ErrPasswordNoUpper), errors.Is(err, core.ErrPasswordNoLower),
		errors.Is(err, core.ErrPasswordNoDigit), errors.Is(err, core.ErrPasswordNoSpecial):
		return "password"
	case errors.Is(err, core.ErrPasswordMismatch):
		return "confirm"
	case errors.Is(err, core.ErrInvalidOTP):
		return "otp"
	case errors.Is(err, core.ErrInvalidRole):
		return "role"
	}
	return ""
}

// isValidation reports whether err was raised before anything was sent.
func isValidation(err error) bool {
	return err != nil && fieldFor(err) != ""
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func formValue(form url.Values, key string) string {
	return sanitizeInput(form.Get(key))
}

func parseSolutionForm(form url.Values) (core.Solution, FormErrors) {
	errs := FormErrors{}
	s := core.Solution{
		Name:        formValue(form, "name"),
		Description: formValue(form, "description"),
	}
	year, err := strconv.Atoi(formValue(form, "year"))
	if err != nil {
		errs.Add(core.ErrInvalidYear)
	}
	s.Year = year
	if !errs.Any() {
		errs.Add(s.Validate())
	}
	return s, errs
}

func parseCashForm(form url.Values) (core.CollectedCash, FormErrors) {
	errs := FormErrors{}
	c := core.CollectedCash{Name: formValue(form, "name")}
	amount, err := core.ParseAmount(form.Get("amount"))
	if err != nil {
		errs.Add(err)
	}
	c.Amount = amount
	if !errs.Any() {
		errs.Add(c.Validate())
	}
	return c, errs
}

// parseExpenseForm reads the multipart expense form. Screenshots the user
// kept arrive as repeated "keepScreenshot" values; new ones as files.
func parseExpenseForm(r *http.Request) (core.ExpenseDraft, []api.Upload, FormErrors, error) {
	errs := FormErrors{}
	if err := r.ParseMultipartForm(maxFormBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return core.ExpenseDraft{}, nil, nil, fmt.Errorf("parse expense form: %w", err)
	}
	form := r.PostForm
	d := core.ExpenseDraft{
		Name:          formValue(form, "name"),
		Category:      formValue(form, "category"),
		PaymentMethod: core.PaymentMethod(formValue(form, "paymentMethod")),
	}
	var err error
	if d.Amount, err = core.ParseAmount(form.Get("amount")); err != nil {
		errs.Add(err)
	}
	if d.PaidAmount, err = core.ParseOptionalAmount(form.Get("paidAmount")); err != nil {
		errs["paidAmount"] = err.Error()
	}
	for _, u := range form["keepScreenshot"] {
		if u = sanitizeInput(u); u != "" {
			d.ExistingScreenshots = append(d.ExistingScreenshots, u)
		}
	}

	var files []api.Upload
	if d.PaymentMethod == core.PaymentUPI && r.MultipartForm != nil {
		files, err = readUploads(r.MultipartForm.File[screenshotField])
		if err != nil {
			if !isValidation(err) {
				return d, nil, nil, err
			}
			errs.Add(err)
		}
	}
	if d.PaymentMethod != core.PaymentUPI {
		d.ExistingScreenshots = nil
	}
	d.NewScreenshots = len(files)
	if !errs.Any() {
		errs.Add(d.Validate())
	}
	return d, files, errs, nil
}

func readUploads(headers []*multipart.FileHeader) ([]api.Upload, error) {
	if len(headers) > maxScreenshots {
		return nil, ErrTooManyFiles
	}
	out := make([]api.Upload, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > maxScreenshotBytes {
			return nil, ErrFileTooLarge
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(io.LimitReader(f, maxScreenshotBytes+1))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
		}
		if len(data) > maxScreenshotBytes {
			return nil, ErrFileTooLarge
		}
		if len(data) == 0 {
			continue
		}
		ct := http.DetectContentType(data)
		if !strings.HasPrefix(ct, "image/") {
			return nil, ErrNotAnImage
		}
		out = append(out, api.Upload{Filename: fh.Filename, ContentType: ct, Data: data})
	}
	return out, nil
}

// parseShares reads the share form: each ticked "user" carries its role
// in "role.<userID>", defaulting to viewer.
func parseShares(form url.Values) ([]core.Share, error) {
	var out []core.Share
	for _, id := range form["user"] {
		id = sanitizeInput(id)
		if id == "" {
			continue
		}
		role := core.ShareRole(formValue(form, "role."+id))
		if role == "" {
			role = core.ShareViewer
		}
		if !role.Valid() || role == core.ShareOwner {
			return nil, core.ErrInvalidRole
		}
		out = append(out, core.Share{User: id, Role: role})
	}
	return out, nil
}

// viewportWidth reads the client hint headers, then the "vw" cookie set by
// the page script. Zero means unknown.
func viewportWidth(r *http.Request) int {
	for _, h := range []string{"Sec-CH-Viewport-Width", "Viewport-Width"} {
		if n, err := strconv.Atoi(strings.TrimSpace(r.Header.Get(h))); err == nil && n > 0 {
			return n
		}
	}
	if c, err := r.Cookie("vw"); err == nil {
		if n, err := strconv.Atoi(c.Value); err == nil && n > 0 {
			return n
		}
	}
	return 0
}
