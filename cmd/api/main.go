package main

import (
	"context"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"caselink/internal/adapter/api"
	"caselink/internal/adapter/api/handler"
	apimiddleware "caselink/internal/adapter/api/middleware"
	"caselink/internal/adapter/api/router"
	"caselink/internal/adapter/repository"
	domainrepo "caselink/internal/domain/repository"
	"caselink/internal/infrastructure/firebase"
	"caselink/internal/infrastructure/websocket"
	"caselink/internal/usecase"
	"caselink/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var (
		userRepo    domainrepo.UserRepository
		caseRepo    domainrepo.CaseRepository
		threadRepo  domainrepo.ThreadRepository
		messageRepo domainrepo.MessageRepository
		verifier    apimiddleware.TokenVerifier
	)

	switch cfg.StorageDriver {
	case "sqlite":
		store, err := repository.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to open sqlite store: %v", err)
		}
		userRepo = store.Users()
		caseRepo = store.Cases()
		threadRepo = store.Threads()
		messageRepo = store.Messages()

		verifier = firebase.NewDevTokenIssuer(cfg.JWTSecret)
		log.Printf("Using sqlite storage at %s with dev token auth", cfg.SQLitePath)

	default:
		var opt option.ClientOption

		// Service account from environment variable (production) or file
		// path (local development).
		if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
			log.Printf("Using Firebase service account from environment variable")
			opt = option.WithCredentialsJSON([]byte(serviceAccountJSON))
		} else {
			serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")
			if serviceAccountPath == "" {
				serviceAccountPath = "./service-account.json"
			}
			if _, err := os.Stat(serviceAccountPath); os.IsNotExist(err) {
				log.Fatalf("Service account file does not exist: %s", serviceAccountPath)
			}
			log.Printf("Using Firebase service account from file: %s", serviceAccountPath)
			opt = option.WithCredentialsFile(serviceAccountPath)
		}

		firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}

		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase Auth: %v", err)
		}

		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
		if err != nil {
			log.Fatalf("Failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()

		userRepo = repository.NewFirestoreUserRepository(firestoreClient)
		caseRepo = repository.NewFirestoreCaseRepository(firestoreClient)
		threadRepo = repository.NewFirestoreThreadRepository(firestoreClient)
		messageRepo = repository.NewFirestoreMessageRepository(firestoreClient)

		verifier = firebase.NewFirebaseAuthClient(authClient)
	}

	chatUseCase := usecase.NewChatUseCase(threadRepo, messageRepo, userRepo, caseRepo)
	registry := websocket.NewGroupRegistry()

	if cfg.Environment == "development" {
		handler.SetupDevTokenHandler(firebase.NewDevTokenIssuer(cfg.JWTSecret), userRepo, caseRepo)
	}

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(verifier)

	chatHandler := handler.NewChatHandler(chatUseCase)
	wsHandler := handler.NewWebSocketHandler(registry, chatUseCase, authMiddleware)

	router.Setup(e, chatHandler, wsHandler, authMiddleware, cfg.Environment)

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
