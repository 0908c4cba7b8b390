package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/epeers/mftracker/internal/models"
	"github.com/epeers/mftracker/internal/search"
	"github.com/epeers/mftracker/internal/services"
	"github.com/epeers/mftracker/internal/upload"
	"github.com/epeers/mftracker/internal/util"
	"github.com/epeers/mftracker/internal/workflow"
	"github.com/spf13/cobra"
)

var (
	uploadFile     string
	uploadScheme   string
	uploadCode     string
	uploadAmount   string
	uploadDate     string
	uploadNickname string
	uploadFundName string
)

// uploadCmd submits a lumpsum holdings upload
var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a lumpsum holdings spreadsheet",
	Long: `Upload a lumpsum holdings spreadsheet (.xls or .xlsx) for a scheme.

The scheme is found by searching --scheme; use --code to pick a result
without being asked. If the backend reports that the file looks like a
different fund, or that several schemes match it, you will be asked how
to proceed.`,
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadFile, "file", "f", "", "Holdings spreadsheet (.xls or .xlsx)")
	uploadCmd.Flags().StringVarP(&uploadScheme, "scheme", "s", "", "Scheme name to search for")
	uploadCmd.Flags().StringVar(&uploadCode, "code", "", "Scheme code to pick from the search results")
	uploadCmd.Flags().StringVarP(&uploadAmount, "amount", "a", "", "Invested amount")
	uploadCmd.Flags().StringVarP(&uploadDate, "date", "d", "", "Invested date (YYYY-MM-DD, DD-MM-YYYY or DD/MM/YYYY)")
	uploadCmd.Flags().StringVarP(&uploadNickname, "nickname", "n", "", "Optional nickname for the fund")
	uploadCmd.Flags().StringVar(&uploadFundName, "fund-name", "", "Fund name (defaults to the scheme name)")
	uploadCmd.MarkFlagRequired("file")
	uploadCmd.MarkFlagRequired("scheme")
}

// prompter asks yes/no and numbered-choice questions on a terminal.
type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewScanner(in), out: out}
}

func (p *prompter) line(question string) (string, bool) {
	fmt.Fprint(p.out, question)
	if !p.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}

func (p *prompter) confirm(question string) bool {
	answer, _ := p.line(question + " [y/N]: ")
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

// choose returns the picked candidate, or false when the user cancels.
func (p *prompter) choose(candidates []models.SchemeCandidate) (models.SchemeCandidate, bool) {
	for i, c := range candidates {
		fmt.Fprintf(p.out, "  %d) %s (%s)\n", i+1, c.SchemeName, c.SchemeCode)
	}
	for {
		answer, ok := p.line("Pick a scheme (blank to cancel): ")
		if !ok || answer == "" {
			return models.SchemeCandidate{}, false
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(candidates) {
			return candidates[n-1], true
		}
		fmt.Fprintf(p.out, "Enter a number between 1 and %d.\n", len(candidates))
	}
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())

	entryDate := ""
	if uploadDate != "" {
		date, err := util.ParseDate(uploadDate)
		if err != nil {
			return err
		}
		entryDate = date.Format(util.EntryDateLayout)
	}
	content, err := os.ReadFile(uploadFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", uploadFile, err)
	}

	client := newClient()
	searcher := search.NewClient(client, search.DefaultMinLength)
	candidate, err := pickScheme(ctx, searcher, p, uploadScheme, uploadCode)
	if err != nil {
		return err
	}

	sess := workflow.NewSession(workflow.Options{
		ID:        "cli",
		Searcher:  searcher,
		Uploader:  upload.NewSubmitter(client),
		Confirmer: client,
		Funds:     services.NewFundService(client, 0).ForToken(token),
	})
	defer sess.Close()

	steps := []func() (workflow.Snapshot, error){
		func() (workflow.Snapshot, error) { return sess.Select(candidate) },
		func() (workflow.Snapshot, error) {
			return sess.SetFile(models.UploadFile{Name: filepath.Base(uploadFile), Content: content})
		},
		func() (workflow.Snapshot, error) { return sess.SetAmount(uploadAmount) },
		func() (workflow.Snapshot, error) { return sess.SetDate(entryDate) },
		func() (workflow.Snapshot, error) { return sess.SetNickname(uploadNickname) },
	}
	if uploadFundName != "" {
		steps = append(steps, func() (workflow.Snapshot, error) { return sess.SetFundName(uploadFundName) })
	}
	for _, step := range steps {
		if _, err := step(); err != nil {
			return err
		}
	}

	snap, err := sess.Submit(ctx)
	var lve *models.LocalValidationError
	if errors.As(err, &lve) {
		return errors.New(lve.Message)
	}
	snap = resolve(ctx, sess, snap, p)
	return report(cmd.OutOrStdout(), snap)
}

// pickScheme searches query and returns the result matching code, or asks
// the user to choose when no code is given.
func pickScheme(ctx context.Context, searcher *search.Client, p *prompter, query, code string) (models.SchemeCandidate, error) {
	if !searcher.Eligible(query) {
		return models.SchemeCandidate{}, fmt.Errorf("scheme query must be at least %d characters", search.DefaultMinLength)
	}
	results, err := searcher.Search(ctx, query)
	if err != nil {
		return models.SchemeCandidate{}, fmt.Errorf("scheme search failed: %w", err)
	}
	if len(results) == 0 {
		return models.SchemeCandidate{}, fmt.Errorf("no schemes match %q", query)
	}
	if code != "" {
		for _, c := range results {
			if c.SchemeCode == code {
				return c, nil
			}
		}
		return models.SchemeCandidate{}, fmt.Errorf("scheme code %s is not among the results for %q", code, query)
	}
	if len(results) == 1 {
		return results[0], nil
	}
	c, ok := p.choose(results)
	if !ok {
		return models.SchemeCandidate{}, errors.New("no scheme selected")
	}
	return c, nil
}

// resolve answers the follow-up questions until the session is idle again.
func resolve(ctx context.Context, sess *workflow.Session, snap workflow.Snapshot, p *prompter) workflow.Snapshot {
	for {
		switch snap.Phase {
		case workflow.PhaseNeedsOverride:
			w := snap.Warning
			fmt.Fprintf(p.out, "Warning: %s\n  File fund name:  %s\n  Expected scheme: %s\n  Similarity:      %.0f%%\n",
				w.WarningText, w.ExtractedOrUnknown(), w.ExpectedFundName, w.SimilarityScore*100)
			if p.confirm("Upload anyway?") {
				snap, _ = sess.ConfirmOverride(ctx)
			} else {
				snap, _ = sess.CancelOverride(ctx)
			}
		case workflow.PhaseNeedsSelection:
			if snap.Message.Kind == workflow.MessageError {
				fmt.Fprintln(p.out, snap.Message.Text)
			}
			fmt.Fprintln(p.out, "Several schemes match the uploaded holdings.")
			c, ok := p.choose(snap.Pending.Candidates)
			if ok {
				snap, _ = sess.SelectCandidate(ctx, c.SchemeCode)
			} else {
				snap, _ = sess.CancelSelection(ctx)
			}
		default:
			return snap
		}
	}
}

func report(out io.Writer, snap workflow.Snapshot) error {
	switch snap.Message.Kind {
	case workflow.MessageError:
		return errors.New(snap.Message.Text)
	case workflow.MessageSuccess:
		fmt.Fprintln(out, snap.Message.Text)
	default:
		fmt.Fprintln(out, "Upload canceled.")
	}
	return nil
}

// holdingsCmd replaces the holdings of an existing fund
var holdingsCmd = &cobra.Command{
	Use:   "holdings <fund-id> <file>",
	Short: "Replace the holdings of a tracked fund",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		content, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[1], err)
		}
		client := newClient()
		svc := services.NewHoldingsService(client, services.NewFundService(client, 0))
		msg, err := svc.RefreshHoldings(ctx, token, args[0], models.UploadFile{Name: filepath.Base(args[1]), Content: content})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}
