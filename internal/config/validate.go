package config

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const minSessionSecret = 32

// Validate runs the struct tags and then the cross-field rules.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("listen_addr", validListenAddr); err != nil {
		return err
	}
	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}
	if len(c.Auth.SessionSecret) < minSessionSecret {
		return fmt.Errorf("auth.session_secret must be at least %d bytes", minSessionSecret)
	}
	if !slices.Contains(c.Locale.Locales, c.Locale.Default) {
		return fmt.Errorf("locale.default %q is not one of locale.locales", c.Locale.Default)
	}
	if c.Authz.Backend == "openfga" {
		if c.Authz.FGA.APIURL == "" || c.Authz.FGA.StoreID == "" {
			return errors.New("authz.fga.api_url and authz.fga.store_id are required when authz.backend is openfga")
		}
	}
	return nil
}

// validListenAddr accepts [host]:port, including port 0 for an ephemeral
// port, which hostname_port rejects.
func validListenAddr(fl validator.FieldLevel) bool {
	_, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 0 && n <= 65535
}

func formatValidationErrors(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, e := range ve {
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must have at least %s items", field, e.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, e.Param()))
		case "url":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid URL", field))
		case "listen_addr":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid host:port", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed validation: %s", field, e.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
