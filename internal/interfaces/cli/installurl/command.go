// Package installurl builds a Slack OAuth authorize URL with a signed
// state parameter, for wiring an app's "Add to Slack" flow by hand.
package installurl

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"boltstore/internal/domain/oauthstate"
	"boltstore/internal/infrastructure/auth"
	"boltstore/internal/infrastructure/config"
	"boltstore/internal/shared/logger"
)

// Slack's OAuth v2 endpoints.
var slackEndpoint = oauth2.Endpoint{
	AuthURL:  "https://slack.com/oauth/v2/authorize",
	TokenURL: "https://slack.com/api/oauth.v2.access",
}

var (
	teamID   string
	metadata string
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install-url",
		Short: "Print a Slack authorize URL with a fresh state parameter",
		RunE:  run,
	}
	cmd.Flags().StringVar(&teamID, "team-id", "", "Pin the install to one workspace")
	cmd.Flags().StringVar(&metadata, "metadata", "", "Opaque metadata carried through the flow")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := buildStateStore(cfg)
	if err != nil {
		return err
	}

	opts := oauthstate.InstallURLOptions{
		Scopes:      splitList(cfg.Slack.Scopes),
		UserScopes:  splitList(cfg.Slack.UserScopes),
		Metadata:    metadata,
		TeamID:      teamID,
		RedirectURI: cfg.Slack.RedirectURI,
	}
	state, err := store.GenerateStateParam(cmd.Context(), opts, time.Now())
	if err != nil {
		return fmt.Errorf("failed to generate state parameter: %w", err)
	}

	oc := oauth2.Config{
		ClientID:     cfg.Slack.ClientID,
		ClientSecret: cfg.Slack.ClientSecret,
		Endpoint:     slackEndpoint,
		RedirectURL:  cfg.Slack.RedirectURI,
		Scopes:       opts.Scopes,
	}
	authCodeOpts := []oauth2.AuthCodeOption{}
	if len(opts.UserScopes) > 0 {
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam("user_scope", strings.Join(opts.UserScopes, ",")))
	}
	if teamID != "" {
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam("team", teamID))
	}

	fmt.Println(oc.AuthCodeURL(state, authCodeOpts...))
	return nil
}

// buildStateStore picks the filesystem store when a states directory is
// configured, and the stateless store otherwise.
func buildStateStore(cfg *config.Config) (oauthstate.StateStore, error) {
	if cfg.Slack.StatesDir != "" {
		return auth.NewFileStateStore(auth.FileStateStoreOptions{
			StateSecret:       cfg.Slack.StateSecret,
			BaseDir:           cfg.Slack.StatesDir,
			ExpirationSeconds: cfg.Slack.StateExpirationSeconds,
			Logger:            logger.NewLogger(),
		})
	}
	return auth.NewClearStateStore(cfg.Slack.StateSecret, cfg.Slack.StateExpirationSeconds), nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
