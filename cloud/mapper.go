package cloud

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/relabs-tech/dysonrest/core/client"
	"github.com/relabs-tech/dysonrest/core/errs"
)

// maxDiagnosticBody limits how much of a response body goes into a 400 message.
const maxDiagnosticBody = 200

// callSite describes how the failures of one operation are reported.
type callSite struct {
	// action completes "Failed to <action>".
	action string
	// operation completes "Invalid <operation> response".
	operation string
	// unauthorized is the message of a 401. Empty means 401 is unexpected.
	unauthorized string
	// serial is set for device scoped calls; it enables the 404 mapping.
	serial string
}

var (
	siteProvision  = callSite{action: "provision API access", operation: "provision"}
	siteUserStatus = callSite{action: "get user status", operation: "user status"}
	siteBeginLogin = callSite{action: "begin login", operation: "login challenge"}

	siteCompleteLogin = callSite{
		action:       "complete login",
		operation:    "login",
		unauthorized: "Invalid credentials or OTP code",
	}
	siteDevices = callSite{
		action:       "get devices",
		operation:    "devices",
		unauthorized: "Authentication token expired or invalid",
	}
)

func deviceSite(action, operation, serial string) callSite {
	return callSite{
		action:       action,
		operation:    operation,
		unauthorized: "Authentication token expired or invalid",
		serial:       serial,
	}
}

// transportError maps a failure of the executor. A cancelled context is
// returned unchanged; everything else, timeouts included, is a connection error.
func (c callSite) transportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return errs.Connection(fmt.Sprintf("Failed to %s: %v", c.action, err), err)
}

// statusError maps a response with a non-2xx status. It returns nil for 2xx.
func (c callSite) statusError(r *client.Request, res *client.Response) error {
	status := res.StatusCode
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusBadRequest:
		return errs.Auth(fmt.Sprintf("Bad request to Dyson API (400): %s %s: %s",
			r.Method, r.Path, diagnosticBody(res.Body)), nil)
	case status == http.StatusUnauthorized && c.unauthorized != "":
		return errs.Auth(c.unauthorized, nil)
	case status == http.StatusNotFound && c.serial != "":
		return errs.API(fmt.Sprintf("Device %s not found or no pending firmware update available", c.serial), nil)
	}
	return errs.API(fmt.Sprintf("Failed to %s: unexpected status %d", c.action, status), nil)
}

// invalidResponse wraps a decode or validation failure of a 2xx body.
func (c callSite) invalidResponse(err error) error {
	return errs.API(fmt.Sprintf("Invalid %s response: %v", c.operation, err), err)
}

// diagnosticBody renders a response body for an error message. It never
// fails: bodies that are empty or not text are described instead.
func diagnosticBody(body []byte) string {
	if len(body) == 0 {
		return "<empty body>"
	}
	if !utf8.Valid(body) {
		return fmt.Sprintf("<%d bytes of binary data>", len(body))
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxDiagnosticBody {
		cut := maxDiagnosticBody
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}
