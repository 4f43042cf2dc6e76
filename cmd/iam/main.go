// Command iam is a thin admin CLI over the REST API. Every subcommand maps
// to one endpoint under /iam/api and authenticates with the admin API key.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	u := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, u, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("X-Admin-API-Key", c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte, err error) error {
	if err != nil {
		return err
	}
	if len(body) > 0 {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
		} else {
			fmt.Println(string(body))
		}
	}
	if status >= 400 {
		return fmt.Errorf("status %d", status)
	}
	if len(body) == 0 {
		fmt.Printf("status=%d\n", status)
	}
	return nil
}

func main() {
	cli := &client{
		BaseURL: envOr("IAM_ADMIN_URL", "http://localhost:8080"),
		APIKey:  envOr("IAM_ADMIN_KEY", ""),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}

	root := &cobra.Command{
		Use:   "iam",
		Short: "admin CLI for the IAM service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cli.APIKey == "" {
				return fmt.Errorf("missing admin API key (--admin-api-key or env IAM_ADMIN_KEY)")
			}
			return nil
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cli.BaseURL, "admin-api-url", cli.BaseURL, "base URL of the admin API (env IAM_ADMIN_URL)")
	root.PersistentFlags().StringVar(&cli.APIKey, "admin-api-key", cli.APIKey, "admin API key (env IAM_ADMIN_KEY)")

	root.AddCommand(policiesCmd(cli), tokensCmd(cli), clientsCmd(cli))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func policiesCmd(cli *client) *cobra.Command {
	cmd := &cobra.Command{Use: "policies", Short: "manage scope policies"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "list every scope policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.print(cli.do(http.MethodGet, "/iam/api/scope_policies/", nil))
		},
	})

	var (
		selectorKind string
		selectorRef  string
		effect       string
		rule         string
		scopes       []string
		description  string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "create a scope policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _ := json.Marshal(map[string]any{
				"description":   description,
				"selector_kind": selectorKind,
				"selector_ref":  selectorRef,
				"effect":        effect,
				"rule":          rule,
				"scopes":        scopes,
			})
			return cli.print(cli.do(http.MethodPost, "/iam/api/scope_policies/", body))
		},
	}
	add.Flags().StringVar(&selectorKind, "selector", "DEFAULT", "selector kind: ACCOUNT | GROUP | DEFAULT")
	add.Flags().StringVar(&selectorRef, "ref", "", "account or group id the selector targets")
	add.Flags().StringVar(&effect, "effect", "PERMIT", "PERMIT | DENY")
	add.Flags().StringVar(&rule, "rule", "EQ", "scope matching rule: EQ | REGEXP")
	add.Flags().StringSliceVar(&scopes, "scope", nil, "scope the policy covers (repeatable; empty covers all)")
	add.Flags().StringVar(&description, "description", "", "free-form description")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "delete a scope policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.print(cli.do(http.MethodDelete, "/iam/api/scope_policies/"+url.PathEscape(args[0]), nil))
		},
	})

	var evalAccount string
	eval := &cobra.Command{
		Use:   "evaluate <scope> [scope...]",
		Short: "run the decision point for an account and scope set",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _ := json.Marshal(map[string]any{
				"account_id": evalAccount,
				"scopes":     args,
			})
			return cli.print(cli.do(http.MethodPost, "/iam/api/scope_policies/evaluate", body))
		},
	}
	eval.Flags().StringVar(&evalAccount, "account", "", "account id to evaluate for")
	_ = eval.MarkFlagRequired("account")
	cmd.AddCommand(eval)

	return cmd
}

func tokensCmd(cli *client) *cobra.Command {
	cmd := &cobra.Command{Use: "tokens", Short: "inspect and revoke tokens"}

	var (
		clientID   string
		accountID  string
		startIndex int
		count      int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "list live tokens, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if clientID != "" {
				q.Set("client_id", clientID)
			}
			if accountID != "" {
				q.Set("account_id", accountID)
			}
			q.Set("startIndex", fmt.Sprint(startIndex))
			q.Set("count", fmt.Sprint(count))
			return cli.print(cli.do(http.MethodGet, "/iam/api/tokens/?"+q.Encode(), nil))
		},
	}
	list.Flags().StringVar(&clientID, "client", "", "filter by client id")
	list.Flags().StringVar(&accountID, "account", "", "filter by account id")
	list.Flags().IntVar(&startIndex, "start-index", 1, "1-based index of the first result")
	list.Flags().IntVar(&count, "count", 20, "page size (0 returns only the total)")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "revoke <id>",
		Short: "revoke a single token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.print(cli.do(http.MethodDelete, "/iam/api/tokens/"+url.PathEscape(args[0]), nil))
		},
	})

	var (
		revClient  string
		revAccount string
		revAll     bool
	)
	revokeAll := &cobra.Command{
		Use:   "revoke-matching",
		Short: "revoke every token a filter matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if revClient != "" {
				q.Set("client_id", revClient)
			}
			if revAccount != "" {
				q.Set("account_id", revAccount)
			}
			if revAll {
				q.Set("all", "true")
			}
			return cli.print(cli.do(http.MethodDelete, "/iam/api/tokens/?"+q.Encode(), nil))
		},
	}
	revokeAll.Flags().StringVar(&revClient, "client", "", "filter by client id")
	revokeAll.Flags().StringVar(&revAccount, "account", "", "filter by account id")
	revokeAll.Flags().BoolVar(&revAll, "all", false, "revoke everything (required when no filter is given)")
	cmd.AddCommand(revokeAll)

	return cmd
}

func clientsCmd(cli *client) *cobra.Command {
	cmd := &cobra.Command{Use: "clients", Short: "manage registered clients"}

	var (
		name   string
		scopes []string
	)
	register := &cobra.Command{
		Use:   "register",
		Short: "register a client; prints the one-time secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _ := json.Marshal(map[string]any{
				"name":   name,
				"scopes": scopes,
			})
			return cli.print(cli.do(http.MethodPost, "/iam/api/clients/", body))
		},
	}
	register.Flags().StringVar(&name, "name", "", "client display name")
	register.Flags().StringSliceVar(&scopes, "scope", nil, "requested scope (repeatable)")
	_ = register.MarkFlagRequired("name")
	cmd.AddCommand(register)

	cmd.AddCommand(&cobra.Command{
		Use:   "get <client-id>",
		Short: "show a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.print(cli.do(http.MethodGet, "/iam/api/clients/"+url.PathEscape(args[0]), nil))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <client-id>",
		Short: "delete a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.print(cli.do(http.MethodDelete, "/iam/api/clients/"+url.PathEscape(args[0]), nil))
		},
	})

	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
