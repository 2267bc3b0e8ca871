package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"

	"handrating-backend/internal/config"
	"handrating-backend/internal/firebase"
)

// Clients bundles the Firebase clients the server needs.
type Clients struct {
	Firestore *firestore.Client
	Auth      *auth.Client
}

// Close releases the Firestore connection.
func (c *Clients) Close() error {
	if c == nil || c.Firestore == nil {
		return nil
	}
	return c.Firestore.Close()
}

// InitFirestore initializes the Firebase Admin SDK and returns the Firestore
// and Auth clients built from appConfig.
func InitFirestore(ctx context.Context, appConfig *config.Config, log *zap.Logger) (*Clients, error) {
	if appConfig == nil {
		return nil, errors.New("InitFirestore: appConfig cannot be nil")
	}

	app, err := firebase.InitFirebase(ctx, appConfig, log)
	if err != nil {
		return nil, err
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("app.Firestore: %w", err)
	}
	log.Info("Firestore client initialized", zap.String("project_id", appConfig.FirebaseProjectID))

	authCl, err := app.Auth(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("app.Auth: %w", err)
	}
	log.Info("Firebase Auth client initialized")

	return &Clients{Firestore: client, Auth: authCl}, nil
}

const (
	connectionTestCollection = "test"
	connectionTestDoc        = "connection"
)

// PingResult is what the connection check wrote and read back.
type PingResult struct {
	WrittenAt time.Time `json:"writtenAt"`
	ReadBack  bool      `json:"readBack"`
}

// Ping writes test/connection and reads it back.
func Ping(ctx context.Context, client *firestore.Client) (*PingResult, error) {
	if client == nil {
		return nil, errors.New("firestore client is not initialized")
	}
	now := time.Now().UTC()
	ref := client.Collection(connectionTestCollection).Doc(connectionTestDoc)
	if _, err := ref.Set(ctx, map[string]interface{}{"timestamp": now, "test": true}); err != nil {
		return nil, fmt.Errorf("failed to write connection test document: %w", err)
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read connection test document: %w", err)
	}
	return &PingResult{WrittenAt: now, ReadBack: snap.Exists()}, nil
}
