package classify

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Class groups remote failures by how operators should read them.
type Class string

const (
	ClassPermission Class = "permission"
	ClassAuth       Class = "auth"
	ClassTimeout    Class = "timeout"
	ClassConnection Class = "connection"
	ClassOther      Class = "other"
)

var permissionKeywords = []string{"permission", "access", "denied", "forbidden"}

var authKeywords = []string{"unauthorized", "authentication", "401", "invalid credentials", "login"}

// IsPermission reports whether an error text reads like an access-rights refusal.
func IsPermission(err error) bool {
	return err != nil && containsAny(err.Error(), permissionKeywords)
}

// Error classifies a remote call failure. Permission wins over auth because
// ERP access errors often mention both.
func Error(err error) Class {
	if err == nil {
		return ClassOther
	}
	if IsPermission(err) {
		return ClassPermission
	}
	if containsAny(err.Error(), authKeywords) {
		return ClassAuth
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ClassTimeout
		}
		return ClassConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ClassConnection
	}
	return ClassOther
}

func containsAny(text string, keywords []string) bool {
	text = strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
