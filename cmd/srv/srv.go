package main

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/questforge/backend/config"
	"github.com/questforge/backend/internal/domain"
	"github.com/questforge/backend/internal/domain/attestation"
	"github.com/questforge/backend/internal/domain/taskverify"
	"github.com/questforge/backend/internal/repository"
	"github.com/questforge/backend/pkg/api/vision"
	"github.com/questforge/backend/pkg/blockchain/eth"
	"github.com/questforge/backend/pkg/kafka"
	"github.com/questforge/backend/pkg/logger"
	"github.com/questforge/backend/pkg/pubsub"
	"github.com/questforge/backend/pkg/router"
	"github.com/questforge/backend/pkg/xcontext"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type srv struct {
	configs *config.Configs
	logger  logger.Logger
	db      *gorm.DB

	ethClients     map[string]eth.EthClient
	evidenceReader *eth.EvidenceReader
	visionEndpoint vision.IEndpoint
	publisher      pubsub.Publisher

	userRepo         repository.UserRepository
	walletRepo       repository.WalletRepository
	questRepo        repository.QuestRepository
	taskRepo         repository.TaskRepository
	prerequisiteRepo repository.PrerequisiteRepository
	progressRepo     repository.ProgressRepository
	submissionRepo   repository.SubmissionRepository
	usedTxRepo       repository.UsedTransactionRepository

	verifierFactory  taskverify.Factory
	issuer           attestation.Issuer
	submissionDomain domain.SubmissionDomain

	router *router.Router
	server *http.Server
}

func (s *srv) loadConfig() {
	configs := config.Configs{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, &configs); err != nil {
			panic(err)
		}
	}

	overrideFromEnv(&configs)
	s.configs = &configs
}

// overrideFromEnv lets deployment secrets stay out of the config file.
func overrideFromEnv(configs *config.Configs) {
	if env := os.Getenv("ENV"); env != "" {
		configs.Env = env
	}

	if port := os.Getenv("PORT"); port != "" {
		configs.ApiServer.Port = port
	}

	if password := os.Getenv("MYSQL_PASSWORD"); password != "" {
		configs.Database.Password = password
	}

	if secret := os.Getenv("TOKEN_SECRET"); secret != "" {
		configs.Auth.TokenSecret = secret
	}

	if key := os.Getenv("VISION_API_KEY"); key != "" {
		configs.Vision.APIKey = key
	}

	if secret := os.Getenv("RELAYER_SECRET"); secret != "" {
		configs.Attestation.RelayerSecret = secret
	}

	if addr := os.Getenv("KAFKA_ADDR"); addr != "" {
		configs.Kafka.Addr = addr
	}
}

func (s *srv) loadLogger() {
	level := logger.INFO
	if s.configs.Env == "local" {
		level = logger.DEBUG
	}

	s.logger = logger.NewLogger(level)
}

func (s *srv) loadDatabase() {
	var err error
	s.db, err = gorm.Open(mysql.Open(s.configs.Database.ConnectionString()), &gorm.Config{})
	if err != nil {
		panic(err)
	}
}

func (s *srv) loadEndpoint() {
	s.ethClients = map[string]eth.EthClient{}
	for name, chainCfg := range s.configs.Blockchain.Chains {
		client, err := eth.NewEthClient(chainCfg)
		if err != nil {
			panic(err)
		}

		s.ethClients[name] = client
	}

	var err error
	s.evidenceReader, err = eth.NewEvidenceReader(s.ethClients)
	if err != nil {
		panic(err)
	}

	s.visionEndpoint = vision.New(s.configs.Vision)
	s.publisher = kafka.NewPublisher("questforge-api", strings.Split(s.configs.Kafka.Addr, ","))
}

func (s *srv) loadRepos() {
	s.userRepo = repository.NewUserRepository()
	s.walletRepo = repository.NewWalletRepository()
	s.questRepo = repository.NewQuestRepository()
	s.taskRepo = repository.NewTaskRepository()
	s.prerequisiteRepo = repository.NewPrerequisiteRepository()
	s.progressRepo = repository.NewProgressRepository()
	s.submissionRepo = repository.NewSubmissionRepository()
	s.usedTxRepo = repository.NewUsedTransactionRepository()
}

func (s *srv) loadDomains() {
	s.verifierFactory = taskverify.NewFactory(
		s.evidenceReader,
		s.visionEndpoint,
		s.ethClients,
		s.prerequisiteRepo,
		s.progressRepo,
		s.userRepo,
		s.walletRepo,
	)

	var err error
	s.issuer, err = attestation.NewIssuer(s.configs.Attestation, s.ethClients, s.walletRepo)
	if err != nil {
		panic(err)
	}

	s.submissionDomain = domain.NewSubmissionDomain(
		s.questRepo,
		s.taskRepo,
		s.submissionRepo,
		s.usedTxRepo,
		s.verifierFactory,
		s.issuer,
		s.publisher,
	)
}

func (s *srv) migrationContext() context.Context {
	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, *s.configs)
	ctx = xcontext.WithLogger(ctx, s.logger)
	ctx = xcontext.WithDB(ctx, s.db)
	return ctx
}
