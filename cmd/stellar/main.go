package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/stellardominion/server/internal/config"
	"github.com/stellardominion/server/internal/core/event"
	"github.com/stellardominion/server/internal/data"
	gonet "github.com/stellardominion/server/internal/net"
	"github.com/stellardominion/server/internal/persist"
	"github.com/stellardominion/server/internal/scripting"
	"github.com/stellardominion/server/internal/sim"
	"github.com/stellardominion/server/internal/system"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m         Stellar Dominion  v0.1.0          \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        星域霸權 · Go 模擬伺服器           \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m伺服器:\033[0m %s\n\n", serverName)
}

// displayWidth counts CJK runes as two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r > 0x7F {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func printSection(title string) {
	lineLen := max(46-displayWidth(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-displayWidth(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Server.StartTime = time.Now().Unix()

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. Rules
	printSection("規則資料")
	rules := data.MustDefault()
	if cfg.Rules.Path != "" {
		if rules, err = data.LoadRules(cfg.Rules.Path); err != nil {
			return fmt.Errorf("rules: %w", err)
		}
	}
	printStat("建築類型", len(rules.Buildings))
	printStat("艦船級別", len(rules.Ships))
	fmt.Println()

	// 4. Save store
	printSection("存檔")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	store, err := persist.Open(openCtx, cfg.Database, log)
	cancel()
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if store != nil {
		defer store.Close()
		printOK(fmt.Sprintf("%s 存檔庫就緒", cfg.Database.Driver))
	} else {
		printOK("存檔已停用")
	}
	fmt.Println()

	// 5. AI scripts
	printSection("AI 腳本")
	engine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()
	var planner system.Planner
	if engine.HasDecider() {
		planner = engine
		printOK("AI 決策腳本已載入")
	} else {
		printOK("無 AI 決策腳本，AI 勢力待機")
	}
	fmt.Println()

	// 6. Simulation
	printSection("模擬")
	opts := sim.Options{Store: store, Planner: planner}
	var gateway *gonet.Server
	if cfg.Gateway.Enabled {
		gateway = gonet.NewServer(cfg.Gateway, log)
		opts.Sources = append(opts.Sources, gateway)
		opts.Sinks = append(opts.Sinks, gateway)
	}
	s, err := sim.New(cfg, rules, opts, log)
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	if err := boot(ctx, cfg, s, store, log); err != nil {
		return err
	}
	printStat("星球", len(s.Planets()))
	printStat("艦船", len(s.Ships()))
	printStat("勢力", len(s.Factions()))
	fmt.Println()

	// 7. Run
	g, ctx := errgroup.WithContext(ctx)
	ctx, quit := context.WithCancel(ctx)
	defer quit()

	printSection("伺服器就緒")
	if gateway != nil {
		g.Go(func() error { return gateway.ListenAndServe(ctx) })
		printReady(fmt.Sprintf("監聽位址 %s%s", cfg.Gateway.BindAddress, cfg.Gateway.Path))
	}
	printReady(fmt.Sprintf("遊戲迴圈啟動 (tick: %s)", cfg.Simulation.Tick))
	fmt.Println()

	g.Go(func() error {
		defer quit()
		return gameLoop(ctx, cfg, s, store != nil, log)
	})
	err = g.Wait()
	log.Info("伺服器已停止")
	return err
}

// boot either loads the configured slot or starts a new game.
func boot(ctx context.Context, cfg *config.Config, s *sim.Simulation, store persist.Store, log *zap.Logger) error {
	if cfg.Game.LoadOnBoot && store != nil {
		loadCtx, cancel := context.WithTimeout(ctx, cfg.Database.Timeout)
		snap, rec, err := store.Load(loadCtx, cfg.Game.SaveSlot)
		cancel()
		switch {
		case err == nil:
			if err := s.Restore(snap); err != nil {
				return fmt.Errorf("restore %q: %w", cfg.Game.SaveSlot, err)
			}
			printOK(fmt.Sprintf("讀取存檔 %s (tick %d)", rec.Slot, rec.Tick))
			return nil
		case errors.Is(err, persist.ErrNoSave):
			log.Info("無存檔，建立新遊戲", zap.String("slot", cfg.Game.SaveSlot))
		default:
			return fmt.Errorf("load %q: %w", cfg.Game.SaveSlot, err)
		}
	}
	if err := s.Reset(); err != nil {
		return fmt.Errorf("new game: %w", err)
	}
	if err := s.Flush(ctx); err != nil {
		return fmt.Errorf("new game: %w", err)
	}
	printOK(fmt.Sprintf("新遊戲 (seed %d)", cfg.Game.Seed))
	return nil
}

// gameLoop feeds wall time to the simulation until ctx ends or an Exit
// command runs. On a normal stop the game is saved to the autosave slot.
func gameLoop(ctx context.Context, cfg *config.Config, s *sim.Simulation, canSave bool, log *zap.Logger) error {
	ticker := time.NewTicker(cfg.Simulation.Tick)
	defer ticker.Stop()

	last := time.Now()
	every := cfg.Simulation.DigestEvery
	nextDigest := s.Tick() + every

	for {
		select {
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now
			if _, err := s.Advance(ctx, elapsed); err != nil {
				if s.Fault() != nil {
					log.Error("模擬中止", zap.Error(err))
					return err
				}
				if ctx.Err() != nil {
					continue
				}
				log.Warn("事件處理失敗", zap.Uint64("tick", s.Tick()), zap.Error(err))
			}
			if every > 0 && s.Tick() >= nextDigest {
				nextDigest = s.Tick() + every
				if d, err := s.Digest(); err == nil {
					log.Info("狀態摘要", zap.Uint64("tick", s.Tick()), zap.String("digest", fmt.Sprintf("%016x", d)))
				}
			}
			if s.ExitRequested() {
				log.Info("收到離開指令")
				return shutdownSave(s, cfg, canSave, log)
			}
		case <-ctx.Done():
			log.Info("收到關閉信號")
			return shutdownSave(s, cfg, canSave, log)
		}
	}
}

func shutdownSave(s *sim.Simulation, cfg *config.Config, canSave bool, log *zap.Logger) error {
	if !canSave || cfg.Game.SaveSlot == "" || s.Fault() != nil {
		return nil
	}
	s.Submit(event.Save{Slot: cfg.Game.SaveSlot})
	if err := s.Flush(context.Background()); err != nil {
		if s.Fault() == nil {
			log.Warn("事件處理失敗", zap.Error(err))
			return nil
		}
		log.Error("關閉前存檔失敗", zap.Error(err))
		return err
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
