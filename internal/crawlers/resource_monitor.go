package crawlers

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/RecoveryAshes/nicheharvest/internal/utils"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/sync/semaphore"
)

const mb = 1024 * 1024

// ResourceMonitor 浏览器会话资源控制
// 职责: 按内存和CPU计算会话上限, 用信号量限制同时打开的浏览器数量
type ResourceMonitor struct {
	config ResourceMonitorConfig

	// 系统总内存(字节)
	totalMemory uint64

	// 会话槽位
	slots    *semaphore.Weighted
	capacity int64
	inUse    atomic.Int64

	// 采样函数, 测试时替换
	memProbe func() (*mem.VirtualMemoryStat, error)
	cpuProbe func() (float64, error)
}

// ResourceMonitorConfig 资源监控器配置
type ResourceMonitorConfig struct {
	MaxSessions         int   // 绝对最大会话数
	SessionMemoryUsage  int64 // 单个浏览器会话平均内存消耗(字节)
	SafetyReserveMemory int64 // 安全保留内存(字节)
	CPULoadThreshold    int   // CPU负载阈值(%), >=200 表示禁用
}

// MemoryStatus 内存状态信息
type MemoryStatus struct {
	TotalMemory     uint64 // 系统总内存(字节)
	AvailableMemory int64  // 扣除保留后的可用内存(字节)
	SafetyReserve   int64  // 安全保留内存(字节)
	MemoryPressure  string // 内存压力等级
}

// NewResourceMonitor 创建资源监控器并确定会话上限
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	return newResourceMonitor(config, mem.VirtualMemory, sampleCPU)
}

func newResourceMonitor(config ResourceMonitorConfig, memProbe func() (*mem.VirtualMemoryStat, error), cpuProbe func() (float64, error)) *ResourceMonitor {
	if config.SessionMemoryUsage <= 0 {
		config.SessionMemoryUsage = 300 * mb
	}
	if config.MaxSessions < 1 {
		config.MaxSessions = 1
	}

	rm := &ResourceMonitor{
		config:   config,
		memProbe: memProbe,
		cpuProbe: cpuProbe,
	}

	if vm, err := memProbe(); err != nil {
		utils.Logger.Warn().Err(err).Msg("获取系统内存失败,使用默认值")
		rm.totalMemory = 4 * 1024 * mb // 默认4GB
	} else {
		rm.totalMemory = vm.Total
	}
	utils.Debugf("系统总内存: %.2f GB", float64(rm.totalMemory)/(1024*mb))

	rm.capacity = int64(rm.CalculateMaxSessions())
	rm.slots = semaphore.NewWeighted(rm.capacity)
	utils.Infof("🖥️  浏览器会话上限: %d", rm.capacity)

	return rm
}

// sampleCPU 所有核心的平均使用率 (100毫秒采样)
func sampleCPU() (float64, error) {
	percentages, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		return 0, err
	}
	if len(percentages) == 0 {
		return 0, fmt.Errorf("CPU使用率数据为空")
	}
	return percentages[0], nil
}

// availableMemory 系统可用内存减去保留内存
func (rm *ResourceMonitor) availableMemory() int64 {
	vm, err := rm.memProbe()
	if err != nil {
		utils.Debugf("读取可用内存失败: %v", err)
		return int64(rm.totalMemory) - rm.config.SafetyReserveMemory
	}
	return int64(vm.Available) - rm.config.SafetyReserveMemory
}

// CalculateMaxSessions 按可用内存、CPU核数和配置上限计算会话数, 至少为1
func (rm *ResourceMonitor) CalculateMaxSessions() int {
	byMemory := 1
	if avail := rm.availableMemory(); avail > 0 {
		byMemory = int(avail / rm.config.SessionMemoryUsage)
	}

	result := byMemory
	if n := runtime.NumCPU(); n < result {
		result = n
	}
	if rm.config.MaxSessions < result {
		result = rm.config.MaxSessions
	}
	if result < 1 {
		result = 1
	}
	return result
}

// CheckResourceAvailability 检查当前资源是否允许再打开一个浏览器
func (rm *ResourceMonitor) CheckResourceAvailability() (canCreate bool, reason string) {
	avail := rm.availableMemory()
	if avail < rm.config.SessionMemoryUsage {
		return false, fmt.Sprintf("内存不足(当前%dMB)", avail/mb)
	}

	if rm.config.CPULoadThreshold < 200 {
		usage, err := rm.cpuProbe()
		if err != nil {
			utils.Debugf("获取CPU使用率失败: %v", err)
		} else if usage > float64(rm.config.CPULoadThreshold) {
			return false, fmt.Sprintf("CPU负载过高(当前%.1f%%)", usage)
		}
	}

	return true, ""
}

// Acquire 占用一个会话槽位, 返回释放函数
// 资源紧张时只记录警告, 槽位数量本身已经限制了并发
func (rm *ResourceMonitor) Acquire(ctx context.Context) (func(), error) {
	if err := rm.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("等待浏览器槽位: %w", err)
	}
	n := rm.inUse.Add(1)

	if ok, reason := rm.CheckResourceAvailability(); !ok {
		utils.Logger.Warn().Int64("sessions", n).Str("reason", reason).Msg("资源紧张, 仍继续打开浏览器")
	}

	var released atomic.Bool
	return func() {
		if released.CompareAndSwap(false, true) {
			rm.inUse.Add(-1)
			rm.slots.Release(1)
		}
	}, nil
}

// Capacity 会话上限
func (rm *ResourceMonitor) Capacity() int {
	return int(rm.capacity)
}

// InUse 当前打开的会话数
func (rm *ResourceMonitor) InUse() int {
	return int(rm.inUse.Load())
}

// GetMemoryStatus 获取当前内存状态
func (rm *ResourceMonitor) GetMemoryStatus() MemoryStatus {
	avail := rm.availableMemory()

	var pressure string
	switch availMB := avail / mb; {
	case availMB < 200:
		pressure = "emergency"
	case availMB < 300:
		pressure = "critical"
	case availMB < 500:
		pressure = "warning"
	default:
		pressure = "normal"
	}

	return MemoryStatus{
		TotalMemory:     rm.totalMemory,
		AvailableMemory: avail,
		SafetyReserve:   rm.config.SafetyReserveMemory,
		MemoryPressure:  pressure,
	}
}
