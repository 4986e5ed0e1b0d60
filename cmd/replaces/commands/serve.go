package commands

import (
	"context"
	"log/slog"
	"time"

	"replaces-backend/internal/bot"
	"replaces-backend/internal/components/chrono"
	"replaces-backend/internal/components/serviceutil"
	"replaces-backend/internal/components/telemetry"
	"replaces-backend/internal/pipeline"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Polls the replacements page on a schedule and answers telegram users.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := openApp(ctx, pipeline.Options{})
		defer a.Close()
		telemetry.InstrumentPerfStats(ctx, a.tel)

		var b *bot.Bot
		if a.config.Telegram.Token != "" {
			api, err := tgbotapi.NewBotAPI(a.config.Telegram.Token)
			if err != nil {
				a.Close()
				serviceutil.Fatal("failed to connect to telegram", err)
			}
			b = bot.NewBot(api, a.driver, a.tel)

			u := tgbotapi.NewUpdate(0)
			u.Timeout = 60
			updates := api.GetUpdatesChan(u)
			defer api.StopReceivingUpdates()
			go b.Listen(ctx, updates)
			slog.Info("telegram bot started", "username", api.Self.UserName)
		}

		location, err := time.LoadLocation(a.config.Poll.Timezone)
		if err != nil {
			a.Close()
			serviceutil.Fatal("failed to load poll timezone", err)
		}
		cron := chrono.NewStandardCron(a.tel, location)
		err = cron.Cron(a.config.Poll.Cron, func() {
			poll(ctx, a, b)
		})
		if err != nil {
			a.Close()
			serviceutil.Fatal("invalid poll schedule", err)
		}
		cron.Start()
		defer cron.Stop()

		slog.Info("polling replacements", "cron", a.config.Poll.Cron, "groups", a.config.Groups)
		<-ctx.Done()
	},
}

func poll(ctx context.Context, a *app, b *bot.Bot) {
	result, err := a.driver.Run(ctx, a.driver.GroupHooks(a.config.Groups...))
	if err != nil {
		slog.Error("poll failed", "err", err.Error())
		return
	}
	if result.HookErr != nil {
		slog.Warn("some groups failed", "run_id", result.RunID, "err", result.HookErr.Error())
	}
	for _, msg := range result.Messages {
		if b == nil || len(a.config.Telegram.NotifyChats) == 0 {
			slog.Info("replacements changed", "hook", msg.Hook, "text", msg.Text)
			continue
		}
		b.Notify(a.config.Telegram.NotifyChats, msg.Text)
	}
}
