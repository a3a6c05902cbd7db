package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nanobanan/banana/internal/db/models"
	"github.com/nanobanan/banana/internal/db/repos"
)

func init() {
	jobsCmd.Flags().IntP("limit", "l", models.DefaultListLimit, "Maximum number of jobs to show")
	jobsCmd.Flags().StringP("status", "s", "", "Filter jobs by status (queued, running, completed, failed)")
	jobsCmd.Flags().String("id-prefix", "", "Filter jobs by ID prefix")
	jobsCmd.Flags().StringP(flagFormat, "f", formatText, "Output format (text, json)")

	showJobCmd.Flags().StringP(flagFormat, "f", formatText, "Output format (text, json)")

	clearJobsCmd.Flags().Bool("force", false, "Skip confirmation")

	jobsCmd.AddCommand(showJobCmd)
	jobsCmd.AddCommand(cancelJobCmd)
	jobsCmd.AddCommand(deleteJobCmd)
	jobsCmd.AddCommand(clearJobsCmd)
	RootCmd.AddCommand(jobsCmd)
}

var jobsCmd = &cobra.Command{
	Use:     "jobs",
	Aliases: []string{"j"},
	Short:   "Manage and view job history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString(flagFormat)
		if err := validFormat(format); err != nil {
			return err
		}

		filter := repos.Filter{}
		if statusStr, _ := cmd.Flags().GetString("status"); statusStr != "" {
			status, err := models.ParseJobStatus(statusStr)
			if err != nil {
				return err
			}
			filter.Status = status
		}
		filter.IDPrefix, _ = cmd.Flags().GetString("id-prefix")

		limit, _ := cmd.Flags().GetInt("limit")
		jobs, err := queries.List(ctx, filter, &models.ListOptions{Limit: limit})
		if err != nil {
			return fmt.Errorf("error fetching jobs: %w", err)
		}

		if format == formatJSON {
			return printJSON(jobs)
		}
		if len(jobs) == 0 {
			fmt.Println("No jobs found.")
			return nil
		}
		printJobTable(jobs)

		total, err := queries.Count(ctx, filter)
		if err == nil && total > int64(len(jobs)) {
			fmt.Printf("\nShowing %d of %d jobs. Use --limit to see more.\n", len(jobs), total)
		}
		return nil
	},
}

var showJobCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show detailed information about a specific job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString(flagFormat)
		if err := validFormat(format); err != nil {
			return err
		}

		job, err := queries.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if format == formatJSON {
			return printJSON(job)
		}
		printJobDetail(job)
		return nil
	},
}

var cancelJobCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a queued or running job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := newControlEngine()
		if err := eng.Cancel(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Cancelled job %s\n", args[0])
		return nil
	},
}

var deleteJobCmd = &cobra.Command{
	Use:   "delete <job-id>",
	Short: "Delete a job from history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := jobRepo.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted job %s\n", args[0])
		return nil
	},
}

var clearJobsCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all jobs from history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		force, _ := cmd.Flags().GetBool("force")
		if !force {
			total, err := queries.Count(ctx, repos.Filter{})
			if err != nil {
				return err
			}
			return fmt.Errorf("this will delete %d job(s); use --force to confirm", total)
		}

		count, err := jobRepo.DeleteAll(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Cleared %d job(s)\n", count)
		return nil
	},
}
