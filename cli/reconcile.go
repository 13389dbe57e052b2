package cli

import (
	"fmt"

	"github.com/sourcegraph/conc"
	"github.com/urfave/cli/v2"

	"pyxis-safe/internal/reconcile"
)

// ReconcileCmd 同步已广播交易的链上结果
var ReconcileCmd = &cli.Command{
	Name:  "reconcile",
	Usage: "查询已广播交易的链上结果并更新状态",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "watch",
			Usage: "持续轮询，直到进程退出",
		},
	},
	Action: action(func(cctx *cli.Context, e *Env) error {
		r := reconcile.New(e.Store.Transactions(), e.Chains, e.Config.Reconcile)

		if !cctx.Bool("watch") {
			res, err := r.RunOnce(cctx.Context)
			if err != nil {
				return err
			}
			fmt.Printf("检查 %d 笔：成功 %d，失败 %d，未确定 %d\n", res.Checked, res.Succeeded, res.Failed, res.Unresolved)
			return nil
		}

		var wg conc.WaitGroup
		var metricsErr error
		if listen := e.Config.Metrics.Listen; listen != "" {
			wg.Go(func() { metricsErr = reconcile.ServeMetrics(cctx.Context, listen) })
		}
		watchErr := r.Watch(cctx.Context)
		wg.Wait()
		if watchErr != nil {
			return watchErr
		}
		return metricsErr
	}),
}
