package main

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/RecoveryAshes/nicheharvest/internal/core"
	"github.com/RecoveryAshes/nicheharvest/internal/utils"
)

// consoleHandoff 在终端提示操作员处理验证
// 同一时间只提示一个验证, 其余worker排队等待
type consoleHandoff struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func newConsoleHandoff(in io.Reader, out io.Writer) *consoleHandoff {
	return &consoleHandoff{in: bufio.NewReader(in), out: out}
}

// ChallengePending 实现 core.HandoffNotifier
func (h *consoleHandoff) ChallengePending(c *core.Challenge) {
	go h.prompt(c)
}

func (h *consoleHandoff) prompt(c *core.Challenge) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// 排队期间已被处理
	select {
	case <-c.Done():
		return
	default:
	}

	fmt.Fprintln(h.out, "\n==================================================")
	fmt.Fprintln(h.out, "🛑 检测到验证页, 需要人工处理")
	fmt.Fprintf(h.out, "   URL: %s\n", c.URL)
	fmt.Fprintf(h.out, "   关键字: %s (第%d次尝试)\n", c.Indicator, c.Attempt)
	fmt.Fprintln(h.out, "   请完成验证或确认页面正常, 然后按回车继续...")
	fmt.Fprintln(h.out, "==================================================")

	if _, err := h.in.ReadString('\n'); err != nil {
		utils.Warnf("读取终端输入失败: %v, 继续执行", err)
	}
	utils.Infof("操作员已处理验证: %s", c.URL)
	c.Resume()
}
