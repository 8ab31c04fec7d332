package cmd

import (
	"bufio"
	"fmt"

	"listenboard/collector"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "获取 Spotify refresh token",
	Long: `打印授权链接；在浏览器中同意授权后，把跳转后的完整 URL（或其中的 code）粘贴回来，
命令会换取并打印 refresh token，写入 .env 的 SPOTIFY_REFRESH_TOKEN 即可。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.SpotifyClientID == "" || cfg.SpotifyClientSecret == "" {
			return fmt.Errorf("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET must be set")
		}
		oc := collector.OAuthConfig(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRedirectURI)
		state := uuid.NewString()

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Open this URL in your browser and approve access:")
		fmt.Fprintln(out)
		fmt.Fprintln(out, collector.AuthorizeURL(oc, state))
		fmt.Fprintln(out)
		fmt.Fprint(out, "Paste the redirect URL (or code): ")

		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read authorization code: %w", err)
		}
		code, err := collector.ParseCode(line, state)
		if err != nil {
			return err
		}

		tok, err := collector.Exchange(cmd.Context(), oc, code)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "SPOTIFY_REFRESH_TOKEN=%s\n", tok.RefreshToken)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
}
