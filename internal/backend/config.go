package backend

import (
	"errors"
	"fmt"

	"budgetbook/internal/config"
)

// Config is the slice of the application config the factory needs.
type Config struct {
	Store        StoreType
	SQLiteDBPath string

	Sink                     SinkType
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string
	GoogleOAuthClientJSON    string
	GoogleOAuthTokenJSON     string
}

// FromAppConfig derives the backend config. The sink is Google Sheets when
// a spreadsheet is configured and memory otherwise.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	c := Config{
		Store:                    StoreType(appConfig.SessionBackend),
		SQLiteDBPath:             appConfig.SQLiteDBPath,
		Sink:                     MemorySink,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleOAuthClientFile:    appConfig.GoogleOAuthClientFile,
		GoogleOAuthTokenFile:     appConfig.GoogleOAuthTokenFile,
		GoogleOAuthClientJSON:    appConfig.GoogleOAuthClientJSON,
		GoogleOAuthTokenJSON:     appConfig.GoogleOAuthTokenJSON,
	}
	if appConfig.SheetsEnabled() {
		c.Sink = SheetsSink
	}
	return c, c.Validate()
}

// Validate checks that the chosen backends have what they need.
func (c Config) Validate() error {
	if !c.Store.IsValid() {
		return fmt.Errorf("invalid store type: %q", c.Store)
	}
	if c.Store == SQLiteStore && c.SQLiteDBPath == "" {
		return errors.New("SQLite database path is required for the sqlite store")
	}

	switch c.Sink {
	case MemorySink:
	case SheetsSink:
		if c.GoogleSpreadsheetID == "" {
			return errors.New("Google spreadsheet ID is required for the sheets sink")
		}
		if c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != "" {
			return nil
		}
		if c.GoogleOAuthClientFile == "" && c.GoogleOAuthClientJSON == "" {
			return errors.New("the sheets sink needs a service account or an OAuth client")
		}
		if c.GoogleOAuthTokenFile == "" && c.GoogleOAuthTokenJSON == "" {
			return errors.New("the sheets sink needs an OAuth token; run oauth-init")
		}
	default:
		return fmt.Errorf("invalid sink type: %q", c.Sink)
	}
	return nil
}
