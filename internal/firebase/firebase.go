package firebase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"handrating-backend/internal/config"
)

// CredentialsOption resolves the Google credentials to use. A credentials file
// wins over the base64 JSON; with neither set it returns nil and the SDK falls
// back to Application Default Credentials.
func CredentialsOption(cfg *config.Config, log *zap.Logger) (option.ClientOption, error) {
	switch {
	case cfg.GoogleApplicationCredentials != "":
		if _, err := os.Stat(cfg.GoogleApplicationCredentials); os.IsNotExist(err) {
			log.Warn("credentials file does not exist, relying on ADC",
				zap.String("path", cfg.GoogleApplicationCredentials))
		}
		return option.WithCredentialsFile(cfg.GoogleApplicationCredentials), nil
	case cfg.FirebaseServiceAccountJSONBase64 != "":
		jsonKey, err := base64.StdEncoding.DecodeString(cfg.FirebaseServiceAccountJSONBase64)
		if err != nil {
			return nil, errors.New("FIREBASE_SERVICE_ACCOUNT_JSON_BASE64 is not a valid base64 string")
		}
		return option.WithCredentialsJSON(jsonKey), nil
	default:
		return nil, nil
	}
}

// InitFirebase creates the Firebase Admin app for the configured project.
func InitFirebase(ctx context.Context, cfg *config.Config, log *zap.Logger) (*firebase.App, error) {
	if cfg.FirebaseProjectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID must be set")
	}
	opt, err := CredentialsOption(cfg, log)
	if err != nil {
		return nil, err
	}

	conf := &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	var app *firebase.App
	if opt != nil {
		app, err = firebase.NewApp(ctx, conf, opt)
	} else {
		log.Info("initializing Firebase using Application Default Credentials")
		app, err = firebase.NewApp(ctx, conf)
	}
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}
	return app, nil
}
