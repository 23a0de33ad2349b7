package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lendman/internal/middleware"
)

// StoreInterface はルーターが必要とするストアの全インターフェース。
type StoreInterface interface {
	UserStoreInterface
	CatalogStoreInterface
	LoanStoreInterface
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	HTTPMetrics       middleware.HTTPMetricsRecorder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// ストア
	Store StoreInterface

	// Prometheusスクレイプ用ハンドラー。nilの場合は/metricsを公開しない。
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → RateLimit(General)
//
// 貸出・返却エンドポイントには貸出操作専用のレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.HTTPMetrics))

	userHandler := NewUserHandler(deps.Store)
	catalogHandler := NewCatalogHandler(deps.Store)
	loanHandler := NewLoanHandler(deps.Store)
	reportHandler := NewReportHandler(deps.Store)

	// ヘルスチェックとメトリクス（レート制限の外に配置）
	r.Get("/health", healthCheck)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 利用者管理
		r.Route("/api/users", func(r chi.Router) {
			r.Post("/", userHandler.AddUser)
			r.Get("/", userHandler.ListUsers)

			r.Route("/{name}", func(r chi.Router) {
				r.Delete("/", userHandler.DeleteUser)
				r.Get("/loans", userHandler.LoanHistory)
			})
		})

		// 著者管理
		r.Route("/api/authors", func(r chi.Router) {
			r.Post("/", catalogHandler.AddAuthor)
			r.Get("/", catalogHandler.ListAuthors)
		})

		// 蔵書管理
		r.Route("/api/books", func(r chi.Router) {
			r.Post("/", catalogHandler.AddBookCopy)
			r.Get("/", catalogHandler.ListAvailableBooks)
			r.Delete("/{title}", catalogHandler.DeleteBook)
		})

		// 貸出・返却（貸出操作専用レート制限を追加）
		r.Route("/api/loans", func(r chi.Router) {
			r.With(deps.RateLimiter.MutationMiddleware()).Post("/", loanHandler.CreateLoan)
			r.With(deps.RateLimiter.MutationMiddleware()).Post("/end", loanHandler.EndLoan)
			r.Get("/", loanHandler.ListBooksOnLoan)
		})

		// コンソール表示用レポート
		r.Route("/api/reports", func(r chi.Router) {
			r.Get("/users", reportHandler.Users)
			r.Get("/authors", reportHandler.Authors)
			r.Get("/books", reportHandler.AvailableBooks)
			r.Get("/loans", reportHandler.BooksOnLoan)
			r.Get("/users/{name}/loans", reportHandler.UserLoanHistory)
		})
	})

	return r
}

// healthCheck は稼働確認エンドポイント。
// ストアはインメモリのため、プロセスが応答すれば稼働中とみなす。
// GET /health
func healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
