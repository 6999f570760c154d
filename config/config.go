package config

import (
	"encoding/json"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/simeonpalla/GovLensAP/models"
)

// Config holds the project config values
type Config struct {
	Port    string
	BaseURL string

	// Record store. ComplaintsFile is the canonical JSON document; when
	// DBURI is set the mongo-backed store is used instead.
	ComplaintsFile string
	DBURI          string
	DatabaseName   string

	// Tracking IDs are minted as {JurisdictionCode}-{year}-{suffix}.
	JurisdictionCode string

	GeminiAPIKey string

	// Officer portal credentials. The password hash is a bcrypt hash.
	OfficerEmail        string
	OfficerPasswordHash string
	JWTSecret           string

	// Daily digest email. Digest is skipped when either address is empty.
	DigestTo   string
	DigestFrom string
}

// New sets up all config related services
func New() *Config {

	//setup zap logger and replace default logger
	logger, err := setLogger(os.Getenv("ENV"))
	if err != nil {
		logger = zap.NewExample()
	}
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		Port:                os.Getenv("PORT"),
		BaseURL:             os.Getenv("BASE_URL"),
		ComplaintsFile:      envOr("COMPLAINTS_FILE", "data/complaints.json"),
		DBURI:               os.Getenv("DB_URI"),
		DatabaseName:        os.Getenv("DB_NAME"),
		JurisdictionCode:    envOr("JURISDICTION_CODE", "AP"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		OfficerEmail:        os.Getenv("OFFICER_EMAIL"),
		OfficerPasswordHash: os.Getenv("OFFICER_PASSWORD_HASH"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		DigestTo:            os.Getenv("DIGEST_EMAIL_TO"),
		DigestFrom:          os.Getenv("DIGEST_EMAIL_FROM"),
	}

}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setLogger(env string) (*zap.Logger, error) {
	switch env {
	case "production":
		return zap.NewProduction()
	case "development":
		return zap.NewDevelopment()
	default:
		return zap.NewExample(), nil
	}
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(err).Error(message)
	w.WriteHeader(httpStatusCode)
	b, _ := json.Marshal(models.ErrorMessageResponse{Response: models.MessageError{Message: message, Error: err.Error()}})
	w.Write(b)
}
