package crawlers

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

func fixedMemory(total, available uint64) func() (*mem.VirtualMemoryStat, error) {
	return func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: total, Available: available}, nil
	}
}

func fixedCPU(usage float64) func() (float64, error) {
	return func() (float64, error) { return usage, nil }
}

// TestCalculateMaxSessions 测试会话上限计算
func TestCalculateMaxSessions(t *testing.T) {
	tests := []struct {
		name      string
		available uint64
		reserve   int64
		max       int
		want      int
	}{
		{name: "受配置上限限制", available: 64 * 1024 * mb, reserve: 1024 * mb, max: 1, want: 1},
		{name: "内存不足时至少为1", available: 100 * mb, reserve: 1024 * mb, max: 8, want: 1},
		{name: "按内存计算", available: 1024*mb + 600*mb, reserve: 1024 * mb, max: 64, want: min(2, runtime.NumCPU())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := newResourceMonitor(ResourceMonitorConfig{
				MaxSessions:         tt.max,
				SessionMemoryUsage:  300 * mb,
				SafetyReserveMemory: tt.reserve,
				CPULoadThreshold:    200,
			}, fixedMemory(128*1024*mb, tt.available), fixedCPU(0))

			if got := rm.CalculateMaxSessions(); got != tt.want {
				t.Errorf("CalculateMaxSessions() = %d, 期望 %d", got, tt.want)
			}
			if rm.Capacity() != tt.want {
				t.Errorf("Capacity() = %d, 期望 %d", rm.Capacity(), tt.want)
			}
		})
	}
}

// TestResourceAvailability 测试内存和CPU检查
func TestResourceAvailability(t *testing.T) {
	tests := []struct {
		name      string
		available uint64
		cpu       float64
		threshold int
		want      bool
	}{
		{name: "资源充足", available: 8 * 1024 * mb, cpu: 10, threshold: 80, want: true},
		{name: "内存不足", available: 1024 * mb, cpu: 10, threshold: 80, want: false},
		{name: "CPU过高", available: 8 * 1024 * mb, cpu: 95, threshold: 80, want: false},
		{name: "CPU检查已禁用", available: 8 * 1024 * mb, cpu: 99, threshold: 200, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := newResourceMonitor(ResourceMonitorConfig{
				MaxSessions:         2,
				SessionMemoryUsage:  300 * mb,
				SafetyReserveMemory: 1024 * mb,
				CPULoadThreshold:    tt.threshold,
			}, fixedMemory(16*1024*mb, tt.available), fixedCPU(tt.cpu))

			ok, reason := rm.CheckResourceAvailability()
			if ok != tt.want {
				t.Errorf("CheckResourceAvailability() = %v (%s), 期望 %v", ok, reason, tt.want)
			}
		})
	}
}

// TestResourceMonitorAcquire 测试槽位限制和重复释放
func TestResourceMonitorAcquire(t *testing.T) {
	rm := newResourceMonitor(ResourceMonitorConfig{
		MaxSessions:         1,
		SessionMemoryUsage:  300 * mb,
		SafetyReserveMemory: 0,
		CPULoadThreshold:    200,
	}, fixedMemory(8*1024*mb, 8*1024*mb), fixedCPU(0))

	release, err := rm.Acquire(context.Background())
	if err != nil {
		t.Fatalf("获取槽位失败: %v", err)
	}
	if rm.InUse() != 1 {
		t.Errorf("InUse() = %d, 期望 1", rm.InUse())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := rm.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("槽位已满时应等待到超时, 实际: %v", err)
	}

	release()
	release()
	if rm.InUse() != 0 {
		t.Errorf("InUse() = %d, 期望 0", rm.InUse())
	}

	again, err := rm.Acquire(context.Background())
	if err != nil {
		t.Fatalf("释放后应能再次获取: %v", err)
	}
	again()
}

// TestMemoryPressure 测试内存压力等级
func TestMemoryPressure(t *testing.T) {
	tests := []struct {
		available uint64
		want      string
	}{
		{available: 100 * mb, want: "emergency"},
		{available: 250 * mb, want: "critical"},
		{available: 400 * mb, want: "warning"},
		{available: 2048 * mb, want: "normal"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			rm := newResourceMonitor(ResourceMonitorConfig{MaxSessions: 1}, fixedMemory(4096*mb, tt.available), fixedCPU(0))
			if got := rm.GetMemoryStatus().MemoryPressure; got != tt.want {
				t.Errorf("MemoryPressure = %s, 期望 %s", got, tt.want)
			}
		})
	}
}
