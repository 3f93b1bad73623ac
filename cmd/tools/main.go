// Command tools prints the function definitions to register with the voice
// platform, pointing at this server's webhook.
package main

import (
	"encoding/json"
	"flag"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	toolx "github.com/tanpawarit/pawsome-voice-agent/agent/tool"
	configx "github.com/tanpawarit/pawsome-voice-agent/pkg/config"
	_ "github.com/tanpawarit/pawsome-voice-agent/pkg/logger/autoload"
)

type Config struct {
	ServerURL string `envconfig:"SERVER_URL" default:"http://localhost:3000" validate:"required,url"`
}

func main() {
	noServer := flag.Bool("no-server", false, "omit the server url from each function")
	cfg := configx.MustNew[Config]("")

	url := strings.TrimRight(cfg.ServerURL, "/") + "/vapi/webhook"
	if *noServer {
		url = ""
	}
	fns, err := toolx.Functions(url)
	if err != nil {
		log.Fatal().Err(err).Msg("render functions")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fns); err != nil {
		log.Fatal().Err(err).Msg("write functions")
	}
}
