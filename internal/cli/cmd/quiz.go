package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"lecturemate/internal/quiz"
)

func newQuizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz <transcript-file|->",
		Short: "Generate fill-in-the-blank questions from a lecture transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return &ExitError{Code: ExitCLIError, Err: err}
				}
				defer f.Close()
				r = f
			}
			text, err := io.ReadAll(r)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}

			count, _ := cmd.Flags().GetInt("count")
			questions := quiz.Generate(string(text), count)
			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(questions)
			}
			if len(questions) == 0 {
				fmt.Fprintln(out, "Transcript has no sentences long enough for a question.")
				return nil
			}
			for i, q := range questions {
				fmt.Fprintf(out, "%d. %s\n", i+1, q.Question)
				for j, opt := range q.Options {
					fmt.Fprintf(out, "   %c) %s\n", 'a'+j, opt)
				}
				if showAnswers, _ := cmd.Flags().GetBool("answers"); showAnswers {
					fmt.Fprintf(out, "   %s\n", q.Explanation)
				}
			}
			return nil
		},
	}
	cmd.Flags().Int("count", quiz.DefaultQuestions, "Number of questions")
	cmd.Flags().Bool("json", false, "Print JSON")
	cmd.Flags().Bool("answers", false, "Show the answer under each question")
	return cmd
}
