// Command substratectl is a thin HTTP client for talking to a running
// substrated instance.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	var addr string

	root := &cobra.Command{
		Use:   "substratectl",
		Short: "talk to a running cognitive substrate daemon",
	}
	root.PersistentFlags().StringVar(&addr, "addr", "http://localhost:8733", "substrated base URL")

	root.AddCommand(
		heartbeatCmd(&addr),
		recentCmd(&addr),
		thinkCmd(&addr),
		identityCmd(&addr),
		oracleCmd(&addr),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func client() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

func heartbeatCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print daemon heartbeat and job status",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client().Get(*addr + "/heartbeat")
			if err != nil {
				return fmt.Errorf("substrated not reachable: %w", err)
			}
			defer resp.Body.Close()
			return printJSON(resp.Body)
		},
	}
}

func recentCmd(addr *string) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently saved thoughts",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := *addr + "/thoughts/recent"
			if typ != "" {
				url += "?type=" + typ
			}
			resp, err := client().Get(url)
			if err != nil {
				return fmt.Errorf("substrated not reachable: %w", err)
			}
			defer resp.Body.Close()

			var thoughts []struct {
				ID        string `json:"id"`
				Content   string `json:"content"`
				Type      string `json:"type"`
				CreatedAt string `json:"created_at"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&thoughts); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tCONTENT")
			for _, t := range thoughts {
				content := t.Content
				if len(content) > 60 {
					content = content[:57] + "..."
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Type, content)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "filter by thought type")
	return cmd
}

func thinkCmd(addr *string) *cobra.Command {
	var typ, origin string
	cmd := &cobra.Command{
		Use:   "think [content]",
		Short: "Save a new thought",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _ := json.Marshal(map[string]string{
				"content": args[0],
				"type":    typ,
				"origin":  origin,
			})
			resp, err := client().Post(*addr+"/thoughts", "application/json", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("substrated not reachable: %w", err)
			}
			defer resp.Body.Close()
			return printJSON(resp.Body)
		},
	}
	cmd.Flags().StringVar(&typ, "type", "user", "thought type")
	cmd.Flags().StringVar(&origin, "origin", "substratectl", "origin tag")
	return cmd
}

func identityCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "identity",
		Short: "Show the substrate's central and established concepts",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client().Get(*addr + "/identity")
			if err != nil {
				return fmt.Errorf("substrated not reachable: %w", err)
			}
			defer resp.Body.Close()
			return printJSON(resp.Body)
		},
	}
}

func oracleCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "oracle [prompt]",
		Short: "Send a prompt straight to the configured text-generation backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _ := json.Marshal(map[string]string{"prompt": strings.Join(args, " ")})
			resp, err := client().Post(*addr+"/oracle", "application/json", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("substrated not reachable: %w", err)
			}
			defer resp.Body.Close()
			return printJSON(resp.Body)
		},
	}
}

func printJSON(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}
