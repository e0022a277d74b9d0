// Command vmsupportsim drives a small scripted workload against a
// simulated support level: it spawns a handful of user processes,
// forces page faults, issues delay and device syscalls through the
// dispatcher, and prints a summary, the same role
// biscuit/src/kernel/chentry.go plays for the kernel build: a small
// standalone driver around the library packages, not part of the
// library itself.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"vmsupport/internal/defs"
	"vmsupport/internal/kernel"
	"vmsupport/internal/support"

	"github.com/charmbracelet/x/ansi"
	"github.com/google/pprof/profile"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func main() {
	nprocs := flag.Int("procs", 4, "number of simulated user processes")
	profilePath := flag.String("profile-out", "", "optional path to write a pprof CPU profile summary")
	flag.Parse()

	if *nprocs < 1 || *nprocs > defs.UPROCMAX {
		log.Fatalf("procs must be between 1 and %d", defs.UPROCMAX)
	}

	var cpuBuf bytes.Buffer
	if err := pprof.StartCPUProfile(&cpuBuf); err != nil {
		log.Fatalf("starting cpu profile: %v", err)
	}

	k := kernel.New()
	defer k.Stop()

	procs := make([]*support.Struct, *nprocs)
	for i := range procs {
		asid := defs.ASID(i + 1)
		s := k.Spawn(asid)
		if s == nil {
			log.Fatalf("spawn asid %d: support pool exhausted", asid)
		}
		procs[i] = s
	}

	faults := runFaultWorkload(k, procs)
	runDeviceWorkload(k, procs)
	runDelayWorkload(k, procs)

	for _, s := range procs {
		k.Dispatch.Terminate(s)
	}

	pprof.StopCPUProfile()
	samples := summarizeProfile(&cpuBuf, *profilePath)

	printSummary(*nprocs, faults, samples)
}

// runFaultWorkload faults in every process's stack page plus one data
// page. With at most UPROCMAX processes at two pages each, it occupies
// at most the 16-frame swap pool and does not reach the eviction path.
func runFaultWorkload(k *kernel.Kernel, procs []*support.Struct) int {
	faults := 0
	for _, s := range procs {
		for _, vpn := range []uint32{support.VPNBase, support.StackPageVPN} {
			exc := &s.OldState[support.PgFaultExcept]
			exc.EntryHi = vpn
			exc.Cause = uint32(defs.ExcTLBL) << 2
			if err := k.Pager.Fault(s); err != nil {
				log.Printf("asid %d: fault on vpn 0x%x: %v", s.ASID, vpn, err)
				continue
			}
			faults++
		}
	}
	return faults
}

// runDeviceWorkload issues a disk round trip and a terminal/printer
// write for the first process, exercising chario and dma end to end.
func runDeviceWorkload(k *kernel.Kernel, procs []*support.Struct) {
	if len(procs) == 0 {
		return
	}
	s := procs[0]
	line := int(s.ASID) - 1

	msg := []byte("vmsupportsim\n")
	if _, err := k.Lines.WriteTerminal(line, msg); err != nil {
		log.Printf("asid %d: write terminal: %v", s.ASID, err)
	}
	if _, err := k.Lines.WritePrinter(line, msg); err != nil {
		log.Printf("asid %d: write printer: %v", s.ASID, err)
	}

	block := []byte("scratch block payload")
	if _, err := k.DMA.DiskWrite(0, 0, block); err != nil {
		log.Printf("asid %d: disk write: %v", s.ASID, err)
	}
	readBack := make([]byte, len(block))
	if _, err := k.DMA.DiskRead(0, 0, readBack); err != nil {
		log.Printf("asid %d: disk read: %v", s.ASID, err)
	}
}

// runDelayWorkload delays every process for zero or one second,
// alternating by process, relying on the real ticker kernel.New started to exercise
// the daemon end to end rather than calling RunOnce directly.
func runDelayWorkload(k *kernel.Kernel, procs []*support.Struct) {
	done := make(chan struct{}, len(procs))
	for i, s := range procs {
		go func(s *support.Struct, seconds int32) {
			if err := k.Delay.Delay(s, seconds); err != nil {
				log.Printf("asid %d: delay: %v", s.ASID, err)
			}
			done <- struct{}{}
		}(s, int32(i%2))
	}
	for range procs {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			log.Print("delay workload: timed out waiting for a wakeup")
			return
		}
	}
}

// summarizeProfile parses the CPU profile vmsupportsim just collected
// with google/pprof's profile package, optionally writing it to path,
// and returns the sample count for the closing report.
func summarizeProfile(cpuBuf *bytes.Buffer, path string) int {
	if cpuBuf.Len() == 0 {
		return 0
	}
	prof, err := profile.Parse(bytes.NewReader(cpuBuf.Bytes()))
	if err != nil {
		log.Printf("parsing cpu profile: %v", err)
		return 0
	}
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			log.Printf("writing profile to %s: %v", path, err)
		} else {
			defer f.Close()
			if err := prof.Write(f); err != nil {
				log.Printf("writing profile to %s: %v", path, err)
			}
		}
	}
	return len(prof.Sample)
}

// greenSGR and resetSGR wrap the summary line in an SGR color escape
// sequence, a stand-in for the terminal line printer's color-capable
// successor.
const greenSGR = "\x1b[32m"
const resetSGR = "\x1b[0m"

// printSummary renders a short styled report to the terminal, then
// logs the same line through ansi.Strip so a redirected log file never
// picks up the raw escape sequences.
func printSummary(nprocs, faults, samples int) {
	p := message.NewPrinter(language.English)
	line := p.Sprintf("vmsupportsim: %d processes, %d page faults serviced, %d profile samples", nprocs, faults, samples)
	styled := greenSGR + line + resetSGR

	fmt.Println(styled)
	log.Print(ansi.Strip(styled))
}
