package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/simeonpalla/GovLensAP/api"
	"github.com/simeonpalla/GovLensAP/api/scheduler"
	"github.com/simeonpalla/GovLensAP/config"
	"github.com/simeonpalla/GovLensAP/databases"
	"github.com/simeonpalla/GovLensAP/gemini"
	"github.com/simeonpalla/GovLensAP/models"
)

// App stores the router, record store and collaborators, so it can be reused
type App struct {
	Router    *mux.Router
	DB        databases.ComplaintDatabase
	AI        gemini.Classifier
	Hub       *FeedHub
	Config    config.Config
	scheduler *scheduler.Scheduler
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for the officer portal
	g := api.Guard{Conf: &a.Config}
	g.SetupGoGuardian()

	r := mux.NewRouter()

	c := Complaint{DB: a.DB, AI: a.AI, Hub: a.Hub, Conf: &a.Config}
	an := Analysis{AI: a.AI}
	ph := Photo{}
	o := Officer{Conf: &a.Config}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	// the websocket feed sits outside the timeout middleware; connections
	// are long-lived
	r.Handle("/ws/feed", http.HandlerFunc(a.Hub.ServeWS)).Methods("GET")

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	apiCreate.Use(api.TimeoutMiddleware(30 * time.Second))

	apiCreate.Handle("/auth/token", api.Middleware(http.HandlerFunc(g.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")
	apiCreate.Handle("/auth/login", http.HandlerFunc(o.OfficerLoginHandler)).Methods("POST")

	// citizen intake
	apiCreate.Handle("/analyze", http.HandlerFunc(an.AnalyzeHandler)).Methods("POST")
	apiCreate.Handle("/transcribe", http.HandlerFunc(an.TranscribeHandler)).Methods("POST")
	apiCreate.Handle("/complaints", http.HandlerFunc(c.CreateComplaintHandler)).Methods("POST")
	apiCreate.Handle("/complaint/{complaint_id}", http.HandlerFunc(c.ComplaintByIDHandler)).Methods("GET")

	// officer portal
	apiCreate.Handle("/complaints", api.Middleware(http.HandlerFunc(c.ComplaintQueueHandler))).Methods("GET")
	apiCreate.Handle("/complaint/{complaint_id}/action", api.Middleware(http.HandlerFunc(c.ApplyActionHandler))).Methods("PUT")
	apiCreate.Handle("/stats", api.Middleware(http.HandlerFunc(c.StatsHandler))).Methods("GET")
	apiCreate.Handle("/photos/signature", api.Middleware(http.HandlerFunc(ph.GenerateSignature))).Methods("POST")

	return r
}

// Initialize is invoked by main to set up the record store, collaborators
// and the router
func (a *App) Initialize() error {

	if a.DB == nil {
		if a.Config.DBURI != "" {
			client, err := databases.NewClient(&a.Config)
			if err != nil {
				zap.S().With(err).Error("failed to create new client")
				return err
			}
			db := databases.NewDatabase(&a.Config, client)
			if err := client.Connect(); err != nil {
				zap.S().With(err).Error("failed to connect to database")
				return err
			}
			a.DB = databases.NewComplaintDatabase(db)
			zap.S().Info("govlens-api has connected to the database")
		} else {
			a.DB = databases.NewComplaintFile(a.Config.ComplaintsFile)
			zap.S().Infow("govlens-api is using the file store", "path", a.Config.ComplaintsFile)
		}
	}

	if err := a.DB.InitStorage(context.Background()); err != nil {
		zap.S().With(err).Error("failed to initialize complaint storage")
		return err
	}

	if a.AI == nil {
		svc, err := gemini.New(context.Background(), a.Config.GeminiAPIKey)
		if err != nil {
			zap.S().With(err).Error("failed to create gemini client")
			return err
		}
		a.AI = svc
	}

	if a.Hub == nil {
		a.Hub = NewFeedHub()
	}

	a.scheduler = scheduler.New(a.DB, &a.Config)
	a.scheduler.Start()

	// initialize api router
	a.initializeRoutes()
	return nil
}

// Shutdown stops the background scheduler
func (a *App) Shutdown() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
