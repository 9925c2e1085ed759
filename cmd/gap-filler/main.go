// Command gap-filler watches the platform edge with a range sensor and
// sweeps a servo-driven gap filler out while a train is berthed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/gap-filler/internal/config"
	"github.com/sweeney/gap-filler/internal/controller"
	"github.com/sweeney/gap-filler/internal/indicator"
	"github.com/sweeney/gap-filler/internal/logic"
	"github.com/sweeney/gap-filler/internal/mqtt"
	"github.com/sweeney/gap-filler/internal/servo"
	"github.com/sweeney/gap-filler/internal/sonar"
	"github.com/sweeney/gap-filler/internal/status"
	"github.com/sweeney/gap-filler/internal/web"
)

// Sensor kinds accepted by -sensor.
const (
	sensorGPIO   = "gpio"
	sensorSerial = "serial"
)

// options holds everything main parses that is not part of logic.Config.
type options struct {
	sensor        string
	pinTrigger    int
	pinEcho       int
	serialPort    string
	servoPin      int
	ledPin        int
	buzzerPin     int
	beep          time.Duration
	broker        string
	heartbeat     time.Duration
	httpAddr      string
	verbose       bool
	printDistance bool
}

func main() {
	def := logic.DefaultConfig()
	flagCfg := def

	configPath := flag.String("config", "", "JSON config file (flags set on the command line take precedence)")
	flag.StringVar(&flagCfg.Policy, "policy", def.Policy, `Detection policy: "hysteresis" or "threshold"`)
	flag.Float64Var(&flagCfg.MinDistance, "min", def.MinDistance, "Lower edge of the train band in cm")
	flag.Float64Var(&flagCfg.ThresholdDistance, "threshold", def.ThresholdDistance, "Upper edge of the train band in cm")
	flag.Float64Var(&flagCfg.MaxDistance, "max", def.MaxDistance, "Distance in cm beyond which the train has left")
	flag.IntVar(&flagCfg.Debounce, "debounce", def.Debounce, "Consecutive samples required for a transition")
	flag.IntVar(&flagCfg.RetractedAngle, "retracted", def.RetractedAngle, "Servo angle when retracted")
	flag.IntVar(&flagCfg.ExtendedAngle, "extended", def.ExtendedAngle, "Servo angle when deployed")
	flag.IntVar(&flagCfg.StepDegrees, "step", def.StepDegrees, "Degrees per sweep step")
	flag.DurationVar(&flagCfg.StepDelay, "step-delay", def.StepDelay, "Pause between sweep steps")
	flag.DurationVar(&flagCfg.SampleInterval, "interval", def.SampleInterval, "Sampling interval")
	flag.DurationVar(&flagCfg.EchoTimeout, "echo-timeout", def.EchoTimeout, "Ultrasonic echo timeout")

	var opts options
	flag.StringVar(&opts.sensor, "sensor", sensorGPIO, `Range sensor: "gpio" (HC-SR04) or "serial" (UART)`)
	flag.IntVar(&opts.pinTrigger, "pin-trigger", sonar.DefaultPinTrigger, "BCM pin for the ultrasonic trigger")
	flag.IntVar(&opts.pinEcho, "pin-echo", sonar.DefaultPinEcho, "BCM pin for the ultrasonic echo")
	flag.StringVar(&opts.serialPort, "serial-port", "/dev/ttyAMA0", "Serial device for -sensor=serial")
	flag.IntVar(&opts.servoPin, "servo-pin", servo.DefaultPin, "BCM pin for the servo PWM signal")
	flag.IntVar(&opts.ledPin, "led-pin", indicator.DefaultPinLED, "BCM pin for the deployed LED (-1 to disable)")
	flag.IntVar(&opts.buzzerPin, "buzzer-pin", indicator.DefaultPinBuzzer, "BCM pin for the transition buzzer (-1 to disable)")
	flag.DurationVar(&opts.beep, "beep", indicator.DefaultBeep, "Buzzer pulse length (0 to disable)")
	flag.StringVar(&opts.broker, "broker", "", "MQTT broker address (empty to disable telemetry)")
	flag.DurationVar(&opts.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&opts.httpAddr, "http", "", "HTTP status address (empty to disable)")
	flag.BoolVar(&opts.verbose, "verbose", false, "Log every sample")
	flag.BoolVar(&opts.printDistance, "print-distance", false, "Print one distance reading and exit")

	flag.Parse()

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg, err := resolveConfig(*configPath, flagCfg, set)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// resolveConfig starts from the config file (or defaults when path is
// empty) and overrides it with every flag named in set.
func resolveConfig(path string, flagCfg logic.Config, set map[string]bool) (logic.Config, error) {
	cfg := logic.DefaultConfig()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	overrides := map[string]func(){
		"policy":       func() { cfg.Policy = flagCfg.Policy },
		"min":          func() { cfg.MinDistance = flagCfg.MinDistance },
		"threshold":    func() { cfg.ThresholdDistance = flagCfg.ThresholdDistance },
		"max":          func() { cfg.MaxDistance = flagCfg.MaxDistance },
		"debounce":     func() { cfg.Debounce = flagCfg.Debounce },
		"retracted":    func() { cfg.RetractedAngle = flagCfg.RetractedAngle },
		"extended":     func() { cfg.ExtendedAngle = flagCfg.ExtendedAngle },
		"step":         func() { cfg.StepDegrees = flagCfg.StepDegrees },
		"step-delay":   func() { cfg.StepDelay = flagCfg.StepDelay },
		"interval":     func() { cfg.SampleInterval = flagCfg.SampleInterval },
		"echo-timeout": func() { cfg.EchoTimeout = flagCfg.EchoTimeout },
	}
	for name, apply := range overrides {
		if set[name] {
			apply()
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newSensor(opts options, cfg logic.Config) (sonar.Sensor, error) {
	switch opts.sensor {
	case sensorGPIO:
		s, err := sonar.NewGPIOSensor(opts.pinTrigger, opts.pinEcho, cfg.EchoTimeout)
		if err != nil {
			return nil, err
		}
		return s, nil
	case sensorSerial:
		s, err := sonar.NewSerialSensor(opts.serialPort, sonar.DefaultSerialTimeout)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown sensor %q (want %q or %q)", opts.sensor, sensorGPIO, sensorSerial)
	}
}

func run(cfg logic.Config, opts options) error {
	// Initialize range sensor
	sensor, err := newSensor(opts, cfg)
	if err != nil {
		return fmt.Errorf("init sensor: %w", err)
	}
	defer sensor.Close()

	// Print distance mode
	if opts.printDistance {
		d, err := sensor.Measure()
		if err != nil {
			return fmt.Errorf("measure: %w", err)
		}
		fmt.Printf("distance: %s\n", distanceString(d))
		return nil
	}

	// Initialize servo and drive it to the retracted position
	act, err := servo.NewPWM(opts.servoPin)
	if err != nil {
		return fmt.Errorf("init servo: %w", err)
	}
	defer act.Close()

	seq := servo.NewSequencer(act, cfg)
	if err := seq.Home(); err != nil {
		return err
	}

	// Indicator is optional; a missing LED must not keep the mechanism down
	if opts.ledPin >= 0 || opts.buzzerPin >= 0 {
		ind, err := indicator.NewGPIO(opts.ledPin, opts.buzzerPin, opts.beep)
		if err != nil {
			log.Printf("indicator disabled: %v", err)
		} else {
			seq.AddObserver(ind)
			defer ind.Close()
		}
	}

	// Initialize MQTT
	var publisher mqtt.Publisher = mqtt.Discard{}
	var mqttStatus mqtt.ConnectionStatus = mqtt.Discard{}
	if opts.broker != "" {
		p := mqtt.NewRealPublisher(opts.broker, mqtt.DefaultClientID)
		publisher, mqttStatus = p, p
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.ConfigFrom(cfg, opts.sensor, opts.heartbeat, opts.broker, opts.httpAddr))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	}

	// Start HTTP status server
	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", opts.httpAddr)
	}

	ctrl := controller.New(sensor, logic.NewPolicy(cfg), seq)
	ctrl.Verbose = opts.verbose

	log.Printf("started: policy=%s band=%v-%vcm max=%vcm debounce=%d interval=%v sensor=%s",
		cfg.Policy, cfg.MinDistance, cfg.ThresholdDistance, cfg.MaxDistance, cfg.Debounce, cfg.SampleInterval, opts.sensor)

	// Ticks that arrive during a sweep are dropped by the ticker
	ticker := time.NewTicker(cfg.SampleInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctrl, publisher, mqttStatus, tracker, opts.heartbeat, time.Now, ticker.C, sigCh)
}

func runLoop(ctrl *controller.Controller, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	stats := logic.NewStats(now())

	update := func() {
		if tracker == nil {
			return
		}
		tracker.Update(ctrl.Mechanism(), ctrl.LastDistance(), ctrl.Angle(), ctrl.Counters(), stats.Counts())
		tracker.SetHealth(ctrl.LastSample(), ctrl.SensorErrors(), ctrl.ActuatorError())
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			if err := ctrl.Shutdown(); err != nil {
				log.Printf("actuator error during shutdown: %v", err)
			}

			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName(s),
				Retained:  true,
			}
			if tracker != nil {
				update()
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", event.Reason)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			}
			return nil

		case <-tick:
			t := now()
			if e := ctrl.Step(t); e != nil {
				stats.Record(*e)
				if err := publisher.Publish(*e); err != nil {
					log.Printf("publish error: %v", err)
				}
			}

			if hb := stats.CheckHeartbeat(t, heartbeat); hb != nil {
				log.Printf("heartbeat: uptime=%v deploy=%d retract=%d",
					hb.Uptime, hb.Counts.Deploy, hb.Counts.Retract)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hb.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					update()
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			update()
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func distanceString(d float64) string {
	if logic.IsNoEcho(d) {
		return "no echo"
	}
	return fmt.Sprintf("%.1f cm", d)
}
