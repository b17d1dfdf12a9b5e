package utils

import (
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// IsPermissionDenied reports whether err is Discord refusing an action for lack of permissions.
func IsPermissionDenied(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden
}

// IsNotFound reports whether err is a Discord 404, e.g. a message that is already gone.
func IsNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
