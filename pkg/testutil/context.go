package testutil

import (
	"context"
	"time"

	"github.com/questforge/backend/config"
	"github.com/questforge/backend/internal/entity"
	"github.com/questforge/backend/pkg/logger"
	"github.com/questforge/backend/pkg/xcontext"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func NewMockContext() context.Context {
	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, MockConfigs())
	ctx = xcontext.WithLogger(ctx, logger.NewLogger(logger.SILENCE))

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	ctx = xcontext.WithDB(ctx, db)
	if err := entity.MigrateTable(ctx); err != nil {
		panic(err)
	}

	return ctx
}

func NewMockContextWithUserID(ctx context.Context, userID string) context.Context {
	return xcontext.WithRequestUserID(ctx, userID)
}

func MockConfigs() config.Configs {
	return config.Configs{
		Env: "testing",
		ApiServer: config.ServerConfigs{
			Host: "localhost",
			Port: "8080",
		},
		Auth: config.AuthConfigs{
			TokenSecret: "token-secret",
			AccessToken: config.TokenConfigs{
				Name:       "access_token",
				Expiration: time.Minute,
			},
		},
		Vision: config.VisionConfigs{
			Endpoints:                  []string{"http://localhost:9999"},
			Model:                      "test-vision",
			RequestTimeout:             time.Second,
			DefaultConfidenceThreshold: 0.75,
		},
		Attestation: config.AttestationConfigs{
			Enabled:         true,
			Chain:           "testchain",
			RegistryAddress: "0x0000000000000000000000000000000000000e45",
			SchemaUID:       "0x0101010101010101010101010101010101010101010101010101010101010101",
			RelayerSecret:   "relayer-secret",
			RelayerNonce:    "relayer-nonce",
			ScanURL:         "https://scan.example.com/attestation/",
			ConfirmTimeout:  time.Second,
		},
		Kafka: config.KafkaConfigs{
			Addr:              "localhost:9092",
			NotificationTopic: "notifications",
		},
	}
}
