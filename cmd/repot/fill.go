package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/repot-ai/internal/template"
	"github.com/thywilljoshua/repot-ai/internal/workspace"
)

type fillResult struct {
	Category string                  `json:"category"`
	Template string                  `json:"template"`
	Out      string                  `json:"out,omitempty"`
	Filled   []string                `json:"filled"`
	Messages []workspace.ChatMessage `json:"messages"`
}

func fillCmd(g *globalFlags) *cobra.Command {
	var docType string
	var templatePath string
	var out string

	cmd := &cobra.Command{
		Use:   "fill <pdf>",
		Short: "Fill a DOCX template from a PDF and write the resulting HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			if !template.Known(docType) {
				return fmt.Errorf("unknown document type %q", docType)
			}
			info := template.Lookup(docType)
			if templatePath == "" {
				templatePath = filepath.Join(cfg.Server.TemplatesDir, info.DOCX)
			}

			pdf, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read source: %w", err)
			}
			docx, err := os.ReadFile(templatePath)
			if err != nil {
				return fmt.Errorf("read template: %w", err)
			}

			ctx := cmd.Context()
			gen, err := newGenerator(ctx, cfg, log)
			if err != nil {
				return err
			}
			sess := workspace.NewSession("cli", docType, gen, nil, log)
			if err := sess.LoadTemplate(ctx, filepath.Base(templatePath), docx); err != nil {
				return err
			}
			genErr := sess.Generate(ctx, pdf)

			st := sess.Snapshot()
			if out != "" {
				if err := os.WriteFile(out, []byte(st.HTML), 0o644); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), st.HTML)
			}

			res := fillResult{
				Category: string(info.Category),
				Template: templatePath,
				Out:      out,
				Messages: st.Messages,
			}
			for k := range st.Fields {
				res.Filled = append(res.Filled, k)
			}
			sort.Strings(res.Filled)
			b, _ := json.MarshalIndent(res, "", "  ")
			fmt.Fprintln(cmd.ErrOrStderr(), string(b))
			return genErr
		},
	}
	cmd.Flags().StringVarP(&docType, "type", "t", "report", "document type: report|lab_report|thesis|lecture_note|review or its label")
	cmd.Flags().StringVar(&templatePath, "template", "", "DOCX template (default: <templates_dir>/<type>.docx)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the HTML here instead of stdout")
	return cmd
}
