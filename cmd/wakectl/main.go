// cmd/wakectl/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"wakeward/internal/config"
	"wakeward/internal/database"
	"wakeward/internal/netcheck"
	"wakeward/internal/power"
	"wakeward/internal/wake"
	"wakeward/internal/wakelog"
)

// Exit codes: 0 every requested host is online (or wake confirmed), 1 one
// or more hosts unreachable or unconfirmed, 2 internal failure.
const (
	exitOK      = 0
	exitPartial = 1
	exitError   = 2
)

func main() {
	configFile := flag.String("config", "config.yaml", "Configuration file path")
	status := flag.Bool("status", false, "Probe hosts and print per-host verdicts")
	wakeHost := flag.String("wake", "", "Send a wake packet to the named host (or a raw MAC address)")
	confirm := flag.Bool("confirm", false, "After -wake, poll until the host is online or the confirm deadline passes")
	gateway := flag.Bool("gateway", false, "Print the default gateway address")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wakectl: failed to load config: %v\n", err)
		os.Exit(exitError)
	}

	prober := netcheck.NewSystemProber()

	switch {
	case *gateway:
		os.Exit(runGateway(prober))
	case *status:
		os.Exit(runStatus(cfg, prober, flag.Args()))
	case *wakeHost != "":
		os.Exit(runWake(cfg, prober, *wakeHost, *confirm))
	default:
		fmt.Fprintln(os.Stderr, "wakectl: one of -status, -wake or -gateway is required")
		flag.Usage()
		os.Exit(exitError)
	}
}

func runGateway(prober netcheck.Prober) int {
	gw, err := prober.DefaultGateway()
	if err != nil {
		fmt.Fprintf(os.Stderr, "wakectl: gateway discovery failed: %v\n", err)
		return exitError
	}
	fmt.Println(gw)
	return exitOK
}

// runStatus classifies the named hosts (all configured hosts when none are
// named) and prints one verdict line per host.
func runStatus(cfg *config.Config, prober netcheck.Prober, names []string) int {
	hosts, err := selectHosts(cfg, names)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wakectl: %v\n", err)
		return exitError
	}
	if len(hosts) == 0 {
		fmt.Fprintln(os.Stderr, "wakectl: no hosts configured")
		return exitError
	}

	classifier := power.NewClassifier(prober, wakelog.NewCollector(nil), nil, power.Options{
		Timeout: cfg.Probe.Timeout,
		TCPPort: cfg.Probe.TCPPort,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(len(hosts))*cfg.Probe.Timeout+5*time.Second)
	defer cancel()

	states := classifier.Classify(ctx, hosts)

	code := exitOK
	for _, host := range hosts {
		state := states[host.ID]
		fmt.Printf("%-20s %-15s %s\n", host.Name, host.IPv4, state.Verdict)
		if state.Verdict != power.VerdictOnline {
			code = exitPartial
		}
	}
	return code
}

func runWake(cfg *config.Config, prober netcheck.Prober, target string, confirm bool) int {
	sender := wake.NewSender(cfg.Wake.BroadcastAddr, cfg.Wake.Port)

	host, err := resolveTarget(cfg, target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wakectl: %v\n", err)
		return exitError
	}

	attempt, err := sender.Send(host.MAC)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wakectl: %v\n", err)
		return exitError
	}
	if attempt.Outcome == wake.OutcomeSendFailed {
		fmt.Fprintf(os.Stderr, "wakectl: send failed: %v\n", attempt.Error)
		return exitPartial
	}

	fmt.Printf("wake sent to %s (%s)\n", host.Name, host.MAC)

	if !confirm {
		return exitOK
	}
	if host.IPv4 == "" {
		fmt.Fprintln(os.Stderr, "wakectl: cannot confirm a raw MAC target")
		return exitPartial
	}

	if awaitOnline(cfg, prober, host) {
		fmt.Printf("%s is online\n", host.Name)
		return exitOK
	}
	fmt.Fprintf(os.Stderr, "wakectl: %s did not come online within %s\n", host.Name, cfg.Wake.ConfirmDeadline)
	return exitPartial
}

func awaitOnline(cfg *config.Config, prober netcheck.Prober, host database.Host) bool {
	classifier := power.NewClassifier(prober, wakelog.NewCollector(nil), nil, power.Options{
		Timeout: cfg.Probe.Timeout,
		TCPPort: cfg.Probe.TCPPort,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Wake.ConfirmDeadline)
	defer cancel()

	ticker := time.NewTicker(cfg.Wake.ConfirmInterval)
	defer ticker.Stop()

	for {
		state := classifier.ClassifyOne(ctx, host)
		if state.Verdict == power.VerdictOnline {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// selectHosts maps names (or IDs) to configured hosts; empty names selects
// every enabled host.
func selectHosts(cfg *config.Config, names []string) ([]database.Host, error) {
	if len(names) == 0 {
		hosts := make([]database.Host, 0, len(cfg.Hosts))
		for _, hc := range cfg.Hosts {
			if !hc.Enabled {
				continue
			}
			hosts = append(hosts, hostFromConfig(hc))
		}
		return hosts, nil
	}

	byName := make(map[string]config.HostConfig, len(cfg.Hosts))
	for _, hc := range cfg.Hosts {
		byName[hc.ID] = hc
		byName[hc.Name] = hc
	}

	hosts := make([]database.Host, 0, len(names))
	for _, name := range names {
		hc, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown host %q", name)
		}
		hosts = append(hosts, hostFromConfig(hc))
	}
	return hosts, nil
}

// resolveTarget accepts a configured host name/ID or a raw MAC address.
func resolveTarget(cfg *config.Config, target string) (database.Host, error) {
	for _, hc := range cfg.Hosts {
		if hc.ID == target || hc.Name == target {
			return hostFromConfig(hc), nil
		}
	}
	if netcheck.ValidMAC(target) {
		return database.Host{Name: target, MAC: netcheck.NormalizeMAC(target)}, nil
	}
	return database.Host{}, fmt.Errorf("unknown host %q", target)
}

func hostFromConfig(hc config.HostConfig) database.Host {
	// Hosts may be configured without an explicit ID; fall back to the
	// name so each host keeps a distinct classification entry.
	id := hc.ID
	if id == "" {
		id = hc.Name
	}

	return database.Host{
		ID:     id,
		Name:   hc.Name,
		IPv4:   hc.IPv4,
		MAC:    netcheck.NormalizeMAC(hc.MAC),
		Labels: hc.Labels,
	}
}
