package server

import (
	"context"
	"math/big"
	"net/http"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lottolink/lottolink-api/internal/client/bundler"
	"github.com/lottolink/lottolink-api/internal/client/chain"
	"github.com/lottolink/lottolink-api/internal/client/paymaster"
	"github.com/lottolink/lottolink-api/internal/handlers"
	"github.com/lottolink/lottolink-api/internal/logger"
	"github.com/lottolink/lottolink-api/internal/services"
	"github.com/lottolink/lottolink-api/internal/store"
)

// defaultPrefundWei is the EntryPoint deposit used when PREFUND_AMOUNT_WEI is
// unset: 0.01 ether.
const defaultPrefundWei = "10000000000000000"

var (
	commonServices *handlers.CommonServices

	bundlerClient   *bundler.Client
	paymasterClient *paymaster.Client
	chainClient     *chain.Client
	operationStore  *store.PostgresStore
)

// InitializeHandlers builds every client and service from the environment.
// Missing required configuration is fatal.
func InitializeHandlers() {
	ctx := context.Background()

	entryPoint := requireAddress("ENTRYPOINT_ADDRESS")
	factory := requireAddress("ACCOUNT_FACTORY_ADDRESS")
	lottery := requireAddress("LOTTERY_ADDRESS")

	ownerKey, err := crypto.HexToECDSA(strings.TrimPrefix(requireEnv("OWNER_PRIVATE_KEY"), "0x"))
	if err != nil {
		logger.Fatal("OWNER_PRIVATE_KEY is not a valid private key", zap.Error(err))
	}
	signer := chain.NewECDSASigner(ownerKey)

	// The operator key funds prefund and deploy transactions. Without it the
	// setup flow is disabled and only sponsored operations from deployed
	// wallets will work.
	operatorKey := ownerKey
	if raw := os.Getenv("OPERATOR_PRIVATE_KEY"); raw != "" {
		operatorKey, err = crypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
		if err != nil {
			logger.Fatal("OPERATOR_PRIVATE_KEY is not a valid private key", zap.Error(err))
		}
	}

	chainClient, err = chain.New(ctx, requireEnv("ETH_RPC_URL"), entryPoint, factory, lottery, operatorKey)
	if err != nil {
		logger.Fatal("Unable to connect to node", zap.Error(err))
	}

	bundlerClient, err = bundler.New(ctx, requireEnv("BUNDLER_RPC_URL"), entryPoint)
	if err != nil {
		logger.Fatal("Unable to connect to bundler", zap.Error(err))
	}

	paymasterClient, err = paymaster.New(ctx, requireEnv("PAYMASTER_RPC_URL"), os.Getenv("PAYMASTER_API_KEY"), entryPoint)
	if err != nil {
		logger.Fatal("Unable to connect to paymaster", zap.Error(err))
	}

	prefundAmount := bigFromEnv("PREFUND_AMOUNT_WEI", defaultPrefundWei)
	accountSalt := bigFromEnv("ACCOUNT_SALT", "0")

	// Operation history is optional; without DATABASE_URL submissions still
	// work, they just aren't recorded.
	var opStore services.OperationStore
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		operationStore, err = store.NewPostgresStore(ctx, dbURL)
		if err != nil {
			logger.Fatal("Unable to connect to operation history database", zap.Error(err))
		}
		opStore = operationStore
	}

	catalogService := services.NewTokenCatalogService(paymasterClient, chainClient)
	strategyService := services.NewStrategyService(nil)
	walletService := services.NewWalletSetupService(chainClient, prefundAmount, accountSalt)
	purchaseService := services.NewPurchaseService(
		bundlerClient,
		paymasterClient,
		chainClient,
		walletService,
		strategyService,
		signer,
		opStore,
		accountSalt,
	)

	commonServices = handlers.NewCommonServices(
		catalogService,
		strategyService,
		purchaseService,
		walletService,
		opStore,
	)
}

// Shutdown releases client connections and the database pool.
func Shutdown() {
	if bundlerClient != nil {
		bundlerClient.Close()
	}
	if paymasterClient != nil {
		paymasterClient.Close()
	}
	if chainClient != nil {
		chainClient.Close()
	}
	if operationStore != nil {
		operationStore.Close()
	}
}

// InitializeRoutes wires middleware and the API surface onto the router.
func InitializeRoutes(router *gin.Engine) {
	router.Use(configureCORS())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/owners/:address/account", commonServices.GetAccountAddress)

		wallets := v1.Group("/wallets/:address")
		{
			// Payment strategy
			wallets.GET("/payment-tokens", commonServices.GetPaymentTokens)
			wallets.GET("/factors", commonServices.GetFactors)
			wallets.PUT("/factors", commonServices.UpdateFactor)
			wallets.POST("/selection", commonServices.SelectToken)

			// Ticket selections and submission
			wallets.GET("/selections", commonServices.GetSelections)
			wallets.POST("/selections", commonServices.AddSelections)
			wallets.DELETE("/selections", commonServices.ClearSelections)
			wallets.POST("/purchases", commonServices.SubmitPurchase)
			wallets.POST("/claims", commonServices.SubmitClaim)
			wallets.POST("/checkins", commonServices.SubmitCheckIn)
			wallets.GET("/operations", commonServices.GetOperations)

			// Wallet readiness and setup
			wallets.GET("/readiness", commonServices.GetWalletReadiness)
			wallets.POST("/setup", commonServices.SetupWallet)
			wallets.POST("/setup/skip", commonServices.SkipWalletSetup)
		}
	}
}

func requireEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		logger.Fatal(key + " environment variable is required")
	}
	return value
}

func requireAddress(key string) common.Address {
	value := requireEnv(key)
	if !common.IsHexAddress(value) {
		logger.Fatal(key + " is not a valid address")
	}
	return common.HexToAddress(value)
}

func bigFromEnv(key, fallback string) *big.Int {
	raw := os.Getenv(key)
	if raw == "" {
		raw = fallback
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		logger.Fatal(key + " is not a valid integer")
	}
	return value
}

// configureCORS returns a configured CORS middleware.
func configureCORS() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()

	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	if originsEnv == "" {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	} else {
		origins := strings.Split(originsEnv, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		corsConfig.AllowOrigins = origins
	}

	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowCredentials = os.Getenv("CORS_ALLOW_CREDENTIALS") == "true"

	return cors.New(corsConfig)
}
