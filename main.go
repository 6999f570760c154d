package main

import (
	"fmt"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/simeonpalla/GovLensAP/api/handlers"
	"github.com/simeonpalla/GovLensAP/config"
)

func main() {
	a := handlers.App{}
	a.Config = *config.New()

	if err := a.Initialize(); err != nil { //initialize record store, gemini and router
		log.Fatal(err)
	}
	defer a.Shutdown()

	zap.S().Infow("govlens-api is up and running",
		"port", a.Config.Port,
		"url", a.Config.BaseURL,
	)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%v", a.Config.Port), a.Router))
}
