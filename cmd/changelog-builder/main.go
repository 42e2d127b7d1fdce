// Command changelog-builder generates a formatted changelog from the
// pull requests or commits between two repository tags.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/releasekit/changelog-builder/internal/builder"
	"github.com/releasekit/changelog-builder/internal/models"
	"github.com/releasekit/changelog-builder/internal/repository"
	"github.com/releasekit/changelog-builder/internal/tags"
	"github.com/releasekit/changelog-builder/pkg/config"
	"github.com/releasekit/changelog-builder/pkg/logger"
)

var (
	flagOwner             string
	flagRepo              string
	flagRepoPath          string
	flagFromTag           string
	flagToTag             string
	flagConfig            string
	flagMode              string
	flagToken             string
	flagOutput            string
	flagIncludeOpen       bool
	flagIgnorePreReleases bool
	flagFailOnError       bool
	flagFetchReviews      bool
	flagVerbose           bool
)

var rootCmd = &cobra.Command{
	Use:   "changelog-builder",
	Short: "Generate a changelog between two tags",
	Long: `changelog-builder renders release notes from the pull requests or
commits between two repository tags, using a configurable category tree
and placeholder templates.

Entries come from the GitHub API (--owner/--repo) or from a local git
work tree (--repo-path).`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&flagOwner, "owner", "", "Repository owner (GitHub mode)")
	rootCmd.Flags().StringVar(&flagRepo, "repo", "", "Repository name (GitHub mode)")
	rootCmd.Flags().StringVar(&flagRepoPath, "repo-path", "", "Path to a local git work tree (commit mode)")
	rootCmd.Flags().StringVar(&flagFromTag, "from-tag", "", "Range start tag (default: predecessor of --to-tag)")
	rootCmd.Flags().StringVar(&flagToTag, "to-tag", "", "Range end tag (default: newest tag)")
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "Configuration file (JSON or YAML)")
	rootCmd.Flags().StringVar(&flagMode, "mode", string(models.ModePR), "Entry source: PR, COMMIT, or HYBRID")
	rootCmd.Flags().StringVar(&flagToken, "token", "", "GitHub token (default: $GITHUB_TOKEN)")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Output file (default: stdout)")
	rootCmd.Flags().BoolVar(&flagIncludeOpen, "include-open", false, "Track open pull requests in a separate bucket")
	rootCmd.Flags().BoolVar(&flagIgnorePreReleases, "ignore-pre-releases", false, "Skip pre-release tags when resolving the from tag")
	rootCmd.Flags().BoolVar(&flagFailOnError, "fail-on-error", false, "Exit non-zero when the tag range cannot be resolved")
	rootCmd.Flags().BoolVar(&flagFetchReviews, "fetch-reviews", false, "Fetch review data per pull request (GitHub mode)")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := logger.Default()
	if flagVerbose {
		log = logger.New(slog.LevelDebug, false)
	}

	cfg := config.Default()
	if flagConfig != "" {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
	}

	mode := models.Mode(strings.ToUpper(flagMode))
	switch mode {
	case models.ModePR, models.ModeCommit, models.ModeHybrid:
	default:
		return fmt.Errorf("unknown mode %q", flagMode)
	}

	repo, owner, name, err := selectBackend()
	if err != nil {
		return err
	}
	log = log.WithRepo(owner, name)

	ctx := context.Background()
	tagList, err := repo.ListTags(ctx, cfg.MaxTagsToFetch)
	if err != nil {
		return fmt.Errorf("failed to list tags: %w", err)
	}
	if len(tagList) == 0 && flagToTag == "" {
		if flagFailOnError {
			return fmt.Errorf("%w in %s/%s", tags.ErrNoTags, owner, name)
		}
		log.Warn("repository has no tags, emitting empty changelog")
		return writeOutput(cfg.EmptyTemplate + "\n")
	}

	tagRange := tags.ResolveRange(tagList, cfg.TagResolver, flagFromTag, flagToTag,
		flagIgnorePreReleases, log.WithComponent("tags").Logger)
	if tagRange.To == nil || tagRange.From == nil {
		if flagFailOnError {
			return fmt.Errorf("unable to resolve tag range (from=%v, to=%v)",
				tagRange.From != nil, tagRange.To != nil)
		}
		log.Warn("unable to resolve tag range, emitting empty changelog")
		return writeOutput(cfg.EmptyTemplate + "\n")
	}
	resolveTagDates(ctx, repo, tagRange, log.Logger)
	log.Info("resolved tag range", "from", tagRange.From.Name, "to", tagRange.To.Name)

	items, diff, err := fetchItems(ctx, repo, tagRange, mode, cfg)
	if err != nil {
		if flagFailOnError {
			return err
		}
		log.Warn("failed to fetch changelog entries", "error", err)
	}

	b := builder.New(log.WithComponent("builder").Logger)
	items = b.FilterBaseBranches(items, cfg.BaseBranches)

	changelog := b.Build(diff, items, models.ReleaseNotesOptions{
		Owner:         owner,
		Repo:          name,
		FromTag:       tagRange.From,
		ToTag:         tagRange.To,
		IncludeOpen:   flagIncludeOpen,
		Mode:          mode,
		Configuration: cfg,
	})
	return writeOutput(changelog)
}

func selectBackend() (repository.Repository, string, string, error) {
	if flagRepoPath != "" {
		return repository.NewLocalGitRepository(flagRepoPath), flagOwner, flagRepo, nil
	}
	if flagOwner == "" || flagRepo == "" {
		return nil, "", "", fmt.Errorf("either --repo-path or both --owner and --repo are required")
	}
	token := flagToken
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	return repository.NewGitHubClient(token, flagOwner, flagRepo), flagOwner, flagRepo, nil
}

// resolveTagDates fills tag dates when the backend can provide them;
// builds survive without dates, the date placeholders just stay empty.
func resolveTagDates(ctx context.Context, repo repository.Repository, tagRange tags.Range, log *slog.Logger) {
	gh, ok := repo.(*repository.GitHubClient)
	if !ok {
		return
	}
	for _, tag := range []*models.TagInfo{tagRange.From, tagRange.To} {
		if tag == nil || tag.Date != nil {
			continue
		}
		date, err := gh.ResolveTagDate(ctx, *tag)
		if err != nil {
			log.Warn("failed to resolve tag date", "tag", tag.Name, "error", err)
			continue
		}
		tag.Date = date
	}
}

func fetchItems(ctx context.Context, repo repository.Repository, tagRange tags.Range, mode models.Mode, cfg config.Configuration) ([]models.PullRequestInfo, models.DiffInfo, error) {
	diff, err := repo.DiffInfo(ctx, *tagRange.From, *tagRange.To)
	if err != nil {
		return nil, models.DiffInfo{}, fmt.Errorf("failed to summarize diff: %w", err)
	}

	reference := time.Now()
	if tagRange.To.Date != nil {
		reference = *tagRange.To.Date
	}

	var items []models.PullRequestInfo
	if mode == models.ModePR || mode == models.ModeHybrid {
		prs, err := repo.PullRequestsBetween(ctx, *tagRange.From, *tagRange.To, cfg.MaxPullRequests)
		if err != nil {
			return nil, diff, fmt.Errorf("failed to fetch pull requests: %w", err)
		}
		for _, pr := range prs {
			if repository.WithinBackTrackWindow(pr.MergedAt, reference, cfg.MaxBackTrackTimeDays) {
				items = append(items, pr)
			}
		}

		if flagIncludeOpen {
			if gh, ok := repo.(*repository.GitHubClient); ok {
				open, err := gh.OpenPullRequests(ctx, cfg.MaxPullRequests)
				if err != nil {
					return nil, diff, fmt.Errorf("failed to fetch open pull requests: %w", err)
				}
				items = append(items, open...)
			}
		}
		if flagFetchReviews {
			if gh, ok := repo.(*repository.GitHubClient); ok {
				attachReviews(ctx, gh, items)
			}
		}
	}
	if mode == models.ModeCommit || mode == models.ModeHybrid {
		for _, commit := range diff.CommitInfo {
			items = append(items, repository.SynthesizeFromCommit(commit))
		}
	}
	return items, diff, nil
}

func attachReviews(ctx context.Context, gh *repository.GitHubClient, items []models.PullRequestInfo) {
	for i := range items {
		if items[i].Number == 0 {
			continue
		}
		reviews, err := gh.PullRequestReviews(ctx, items[i].Number)
		if err != nil {
			continue
		}
		items[i].Reviews = reviews
		for _, review := range reviews {
			if strings.EqualFold(review.State, "APPROVED") {
				items[i].ApprovedReviewers = append(items[i].ApprovedReviewers, review.Author)
			}
		}
	}
}

func writeOutput(changelog string) error {
	if flagOutput == "" {
		fmt.Print(changelog)
		return nil
	}
	if err := os.WriteFile(flagOutput, []byte(changelog), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
