package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mailroom/pkg/address"
	"github.com/dmitrymomot/mailroom/pkg/dispatch"
	"github.com/dmitrymomot/mailroom/pkg/logger"
	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

var previewCmd = &cobra.Command{
	Use:   "preview [request.json]",
	Short: "Render a send request without sending it",
	Long: "Reads a send request (the POST /v1/emails body) from a file or stdin, " +
		"validates it and prints the rendered subject, HTML or text body.",
	Args: cobra.MaximumNArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().String("format", "html", "output part: html or text")
}

func runPreview(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var req dispatch.Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return fmt.Errorf("preview: decode request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	d := &deps{cfg: cfg, log: logger.NewNope()}

	tmpl, _ := mailer.LookupTemplate(req.Template)
	payload, err := mailer.DecodePayload(tmpl, req.Payload)
	if err != nil {
		return err
	}
	email, err := d.buildComposer().Compose(mailer.Message{
		To:      address.NormalizeList(req.To),
		CC:      address.NormalizeList(req.CC),
		BCC:     address.NormalizeList(req.BCC),
		Subject: req.Subject,
		Payload: payload,
	})
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Subject: %s\n\n", email.Subject)
	if format == "text" {
		_, err = io.WriteString(out, email.Text)
	} else {
		_, err = io.WriteString(out, email.HTML)
	}
	return err
}
