package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kelsos/slack-bridge/internal/api"
	"github.com/kelsos/slack-bridge/internal/bridge"
	"github.com/kelsos/slack-bridge/internal/config"
	"github.com/kelsos/slack-bridge/internal/host"
	"github.com/kelsos/slack-bridge/internal/logger"
	"github.com/kelsos/slack-bridge/internal/sched"
	"github.com/kelsos/slack-bridge/internal/services"
	"github.com/kelsos/slack-bridge/internal/transport"
	"github.com/kelsos/slack-bridge/internal/tui"
)

// runtime bundles the wired-up execution stack for one invocation.
type runtime struct {
	host      *host.Local
	scheduler *sched.Scheduler
	sync      *services.SyncService
}

func newRuntime(cfg *config.Config) *runtime {
	localHost := host.NewLocal()
	scheduler := sched.New()
	hostBridge := bridge.New(localHost)
	transportClient := transport.NewClient(hostBridge)
	apiClient := api.NewClient(transportClient, cfg)

	return &runtime{
		host:      localHost,
		scheduler: scheduler,
		sync:      services.NewSyncService(cfg, apiClient, scheduler),
	}
}

// execute launches fn as the top-level task and drives the host event loop
// until it completes.
func (r *runtime) execute(fn sched.Computation) {
	done := make(chan struct{})

	r.host.Invoke(func() {
		r.scheduler.CreateTask(func(co *sched.Coroutine) (any, error) {
			defer close(done)
			return fn(co)
		}, true)
	})

	go func() {
		<-done
		r.host.Stop()
	}()

	r.host.Run(r.scheduler.OnCallback)
}

// executeWithTUI is execute with a live bubbletea monitor attached to the
// scheduler. Logging goes to a file so it does not fight the monitor for
// the terminal.
func (r *runtime) executeWithTUI(fn sched.Computation) error {
	if err := logger.InitFileOnly(); err != nil {
		return err
	}
	defer logger.Close()

	program := tea.NewProgram(tui.NewModel())
	r.scheduler.SetObserver(tui.NewSchedulerObserver(program))

	go r.execute(func(co *sched.Coroutine) (any, error) {
		value, err := fn(co)
		program.Send(tui.LogMessage{Message: "Sync complete, press q to quit"})
		return value, err
	})

	if _, err := program.Run(); err != nil {
		return err
	}
	r.host.Stop()
	return nil
}

func loadConfig(timeout, maxRetries int) *config.Config {
	cfg := config.NewConfig()
	cfg.LoadFromEnvironment()
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	if maxRetries >= 0 {
		cfg.MaxRetries = maxRetries
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration: %v", err)
	}
	return cfg
}

func main() {
	logger.Init()
	config.LoadEnvironment()

	var (
		timeout    int
		maxRetries int
		pages      int
		types      string
		useTUI     bool
	)

	rootCmd := &cobra.Command{
		Use:   "slack-bridge",
		Short: "Sync Slack conversations over the async host bridge",
		Long:  `slack-bridge drives the Slack Web API through a cooperative task scheduler, fetching conversations and their history without ever blocking the event loop.`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig(timeout, maxRetries)
			r := newRuntime(cfg)

			run := func(co *sched.Coroutine) (any, error) {
				summary, err := r.sync.SyncWorkspace(co, types, pages)
				if err != nil {
					logger.Error("Sync failed: %v", err)
					return nil, err
				}
				logger.Info("Synced %d conversations, %d messages (%d failed)",
					summary.Conversations, summary.Messages, summary.Failed)
				return summary, nil
			}

			if useTUI {
				if err := r.executeWithTUI(run); err != nil {
					logger.Fatal("Monitor failed: %v", err)
				}
				return
			}
			r.execute(run)
		},
	}

	var limit int
	conversationsCmd := &cobra.Command{
		Use:   "conversations",
		Short: "List the conversations the authenticated user is a member of",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig(timeout, maxRetries)
			r := newRuntime(cfg)

			r.execute(func(co *sched.Coroutine) (any, error) {
				conversations, err := r.sync.ListConversations(co, types, limit, pages)
				if err != nil {
					logger.Error("Failed to list conversations: %v", err)
				}
				return conversations, err
			})
		},
	}
	conversationsCmd.Flags().IntVarP(&limit, "limit", "l", 1000, "Conversations per page")

	var (
		channel string
		oldest  string
	)
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Fetch message history for one conversation",
		Run: func(cmd *cobra.Command, args []string) {
			if channel == "" {
				logger.Fatal("--channel is required")
			}
			cfg := loadConfig(timeout, maxRetries)
			r := newRuntime(cfg)

			r.execute(func(co *sched.Coroutine) (any, error) {
				history, err := r.sync.FetchHistory(co, channel, oldest)
				if err != nil {
					logger.Error("Failed to fetch history: %v", err)
				}
				return history, err
			})
		},
	}
	historyCmd.Flags().StringVarP(&channel, "channel", "c", "", "Conversation id to fetch")
	historyCmd.Flags().StringVarP(&oldest, "oldest", "o", "", "Only fetch messages newer than this timestamp")

	rootCmd.PersistentFlags().IntVarP(&timeout, "timeout", "t", 0, "Request timeout in seconds (default from config)")
	rootCmd.PersistentFlags().IntVarP(&maxRetries, "max-retries", "r", -1, "Maximum retries for failed requests (default from config)")
	rootCmd.PersistentFlags().IntVarP(&pages, "pages", "p", -1, "Pages of paginated results to fetch (-1 for all)")
	rootCmd.PersistentFlags().StringVarP(&types, "types", "", "public_channel,private_channel,im", "Conversation types to include")
	rootCmd.Flags().BoolVarP(&useTUI, "tui", "", false, "Show a live task monitor")

	rootCmd.AddCommand(conversationsCmd)
	rootCmd.AddCommand(historyCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Fatal("Failed to execute command: %v", err)
	}
}
