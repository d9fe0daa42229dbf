package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/minios-linux/dstrans/i18n"
	"github.com/minios-linux/dstrans/llm"
	"github.com/minios-linux/dstrans/settings"
	"github.com/spf13/cobra"
)

// ---------------------------------------------------------------------------
// auth (credential store)
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage inference server and registry credentials",
		Long: `Manage credentials stored in ` + "$XDG_DATA_HOME/dstrans/auth.json" + `.

API keys (bearer tokens for inference servers):
  vllm           vLLM server started with --api-key
  ollama         Ollama behind an authenticating proxy
  custom-openai  Any OpenAI-compatible endpoint (key and base URL)

Registry keys (S3-compatible bucket for exported datasets):
  registry       access key and secret key

Examples:
  dstrans auth set vllm                              Prompt for a vLLM API key
  dstrans auth set custom-openai --base-url URL      Store endpoint and key
  dstrans auth set registry --access-key AK --secret-key SK
  dstrans auth remove vllm                           Remove one entry
  dstrans auth remove --all                          Remove all credentials
  dstrans auth list                                  Show stored credentials`,
	}

	cmd.AddCommand(
		newAuthSetCmd(),
		newAuthRemoveCmd(),
		newAuthListCmd(),
	)

	return cmd
}

func newAuthSetCmd() *cobra.Command {
	var key, baseURL, accessKey, secretKey string

	cmd := &cobra.Command{
		Use:       "set <provider|registry>",
		Short:     "Store an API key or the registry keys",
		Args:      cobra.ExactArgs(1),
		ValidArgs: append(llm.ProviderIDs(), settings.RegistryID),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if id == settings.RegistryID {
				return authSetRegistry(accessKey, secretKey)
			}
			if _, err := llm.LookupProvider(id); err != nil {
				return err
			}
			return authSetAPIKey(cmd.InOrStdin(), id, key, baseURL)
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "API key (prompted when omitted)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Server base URL stored with the key")
	cmd.Flags().StringVar(&accessKey, "access-key", "", "Registry access key")
	cmd.Flags().StringVar(&secretKey, "secret-key", "", "Registry secret key")

	return cmd
}

func authSetAPIKey(in io.Reader, providerID, key, baseURL string) error {
	existing := settings.Get(providerID)
	if key == "" {
		fmt.Fprintf(os.Stderr, "\n%s%s%s\n", colorBlue, fmt.Sprintf(i18n.T("%s API key setup"), providerID), colorReset)
		fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
		if existing != nil && existing.Key != "" {
			fmt.Fprintf(os.Stderr, "  %s %s%s%s\n", i18n.T("Current key:"), colorYellow, settings.MaskKey(existing.Key), colorReset)
			fmt.Fprintf(os.Stderr, "  %s", i18n.T("Enter new key to replace, or press Enter to keep: "))
		} else {
			fmt.Fprintf(os.Stderr, "  %s", i18n.T("Enter API key: "))
		}

		scanner := bufio.NewScanner(in)
		if scanner.Scan() {
			key = strings.TrimSpace(scanner.Text())
		}
		if key == "" {
			if existing != nil && existing.Key != "" {
				key = existing.Key
			} else if baseURL == "" {
				return errors.New(i18n.T("no API key provided"))
			}
		}
	}
	if baseURL == "" && existing != nil {
		baseURL = existing.BaseURL
	}

	if err := settings.SetAPIKey(providerID, key, baseURL); err != nil {
		return fmt.Errorf("saving API key: %w", err)
	}
	logSuccess(i18n.T("Credentials for %s saved to %s"), providerID, settings.FilePath())
	return nil
}

func authSetRegistry(accessKey, secretKey string) error {
	if accessKey == "" || secretKey == "" {
		return errors.New(i18n.T("registry needs both --access-key and --secret-key"))
	}
	if err := settings.SetRegistryKeys(accessKey, secretKey); err != nil {
		return fmt.Errorf("saving registry keys: %w", err)
	}
	logSuccess(i18n.T("Credentials for %s saved to %s"), settings.RegistryID, settings.FilePath())
	return nil
}

func newAuthRemoveCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "remove [id]",
		Aliases: []string{"rm", "logout"},
		Short:   "Remove stored credentials",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				if err := settings.RemoveAll(); err != nil {
					return err
				}
				logSuccess("%s", i18n.T("All credentials removed"))
				return nil
			}
			if len(args) == 0 {
				return errors.New(i18n.T("name an entry to remove, or pass --all"))
			}
			if settings.Get(args[0]) == nil {
				logWarning(i18n.T("No credentials stored for %s"), args[0])
				return nil
			}
			if err := settings.Remove(args[0]); err != nil {
				return err
			}
			logSuccess(i18n.T("Removed credentials for %s"), args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove all stored credentials")

	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored credentials",
		Run: func(cmd *cobra.Command, args []string) {
			printCredentials(os.Stderr, settings.Load())
		},
	}
}

func printCredentials(w io.Writer, store settings.Store) {
	fmt.Fprintf(w, "\n%s%s%s\n", colorBlue, i18n.T("Stored Credentials"), colorReset)
	fmt.Fprintln(w, strings.Repeat("─", 60))

	if len(store) == 0 {
		fmt.Fprintf(w, "  %s%s%s\n", colorRed, i18n.T("none"), colorReset)
	}
	for _, id := range store.IDs() {
		fmt.Fprintf(w, "  %-14s %s\n", id, store[id].Describe())
	}

	fmt.Fprintf(w, "\n  %s%s%s\n", colorYellow, i18n.T("Environment Variables"), colorReset)
	if envKey := os.Getenv(settings.APIKeyEnv); envKey != "" {
		fmt.Fprintf(w, "  %s: %s%s%s %s\n", settings.APIKeyEnv, colorGreen, settings.MaskKey(envKey), colorReset, i18n.T("(overrides stored keys)"))
	} else {
		fmt.Fprintf(w, "  %s: %s%s%s\n", settings.APIKeyEnv, colorRed, i18n.T("not set"), colorReset)
	}
	fmt.Fprintln(w)
}
