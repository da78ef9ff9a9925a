// Command artrec 是作品推荐引擎的命令行入口。
//
//	artrec [-config path] <command> [flags]
//
//	recommend  为单个用户生成推荐（或 -similar 查询相似作品）
//	batch      为全部活跃用户重算预计算结果（-schedule 按 cron 周期执行）
//	cleanup    删除过期的预计算结果
//	stats      输出预计算结果统计
//	bulk       基于快照为单个用户生成批量结果
//	export     从特征存储导出快照
//	config     输出生效的配置
//
// 未配置 postgres/redis 时使用内置的演示画廊（内存存储）。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goccy/go-json"

	"github.com/rushteam/artrec/config"
	"github.com/rushteam/artrec/pkg/logging"
)

var commands = map[string]func(ctx context.Context, a *app, args []string) error{
	"recommend": runRecommend,
	"batch":     runBatch,
	"cleanup":   runCleanup,
	"stats":     runStats,
	"bulk":      runBulk,
	"export":    runExport,
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	global := flag.NewFlagSet("artrec", flag.ContinueOnError)
	configPath := global.String("config", "", "path to YAML config file (default: $ARTREC_CONFIG or ./artrec.yaml)")
	global.Usage = func() { usage(global.Output()) }
	if err := global.Parse(args); err != nil {
		return err
	}
	rest := global.Args()
	if len(rest) == 0 {
		usage(global.Output())
		return errors.New("command is required")
	}
	name, cmdArgs := rest[0], rest[1:]

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if name == "config" {
		out, err := config.Dump(cfg)
		if err != nil {
			return err
		}
		_, err = stdout.Write(out)
		return err
	}

	cmd, ok := commands[name]
	if !ok {
		usage(global.Output())
		return fmt.Errorf("unknown command %q", name)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	a.stdout = stdout
	defer a.Close()

	return cmd(ctx, a, cmdArgs)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: artrec [-config path] <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  recommend -user ID [-limit N] [-category C] [-style a,b] [-price-min X -price-max Y] [-algorithm A]")
	fmt.Fprintln(w, "  recommend -similar ARTWORK_ID [-limit N]")
	fmt.Fprintln(w, "  batch [-schedule \"0 3 * * *\"] [-metrics-addr :9090]")
	fmt.Fprintln(w, "  cleanup")
	fmt.Fprintln(w, "  stats")
	fmt.Fprintln(w, "  bulk -user ID [-size N]")
	fmt.Fprintln(w, "  export [-out path]")
	fmt.Fprintln(w, "  config")
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
