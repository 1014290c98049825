package rcos

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"tcc/pkg/alpaca"
	"tcc/pkg/tcc"
)

const (
	driverName    = "RCOS TCC Driver"
	driverVersion = "1.0"
)

type connState int

const (
	connStateDisconnected connState = iota
	connStateConnecting
	connStateConnected
)

// Driver owns the shared TCC client behind the focuser, rotator and
// switch Alpaca devices. All three connect and disconnect together:
// they are one instrument on one serial line.
type Driver struct {
	store  *store
	tmpl   *template.Template
	logger log.FieldLogger

	mu        sync.Mutex
	state     connState
	cli       *tcc.Client
	tempComp  bool
	mqttCli   mqtt.Client
	cancelPub context.CancelFunc
}

func NewDriver(db *bolt.DB, tmpl *template.Template, logger log.FieldLogger) (*Driver, error) {
	store, err := newStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %v", err)
	}

	driver := Driver{
		store:  store,
		tmpl:   tmpl,
		logger: logger,
		state:  connStateDisconnected,
	}

	return &driver, nil
}

func (d *Driver) Close() {
	d.logger.Info("Closing TCC driver")

	if err := d.Disconnect(); err != nil && err != alpaca.ErrNotConnected {
		d.logger.Errorf("failed to disconnect: %v", err)
	}
}

// Connect opens the configured port and starts the protocol client.
// Connecting an already-connected driver is a no-op, so the three
// Alpaca devices can each ask for a connection.
func (d *Driver) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == connStateConnected {
		return nil
	}

	config, err := d.store.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to get TCC config: %v", err)
	}

	d.state = connStateConnecting

	var port tcc.Port
	if config.Port == SimulatorPort {
		port = NewSimulator(d.logger)
	} else {
		port, err = tcc.OpenSerial(config.Port)
		if err != nil {
			d.state = connStateDisconnected
			return err
		}
	}

	cli := tcc.NewClient(tcc.Config{
		FocuserMoveFormat: config.FocuserMoveFormat,
		RotatorMoveFormat: config.RotatorMoveFormat,
	}, d.logger)

	if err := cli.Open(port); err != nil {
		port.Close()
		d.state = connStateDisconnected
		return err
	}

	d.cli = cli
	d.state = connStateConnected
	d.logger.Infof("Connected to TCC on %s", config.Port)

	if config.MQTT.Host != "" {
		if err := d.startPublisher(config, cli); err != nil {
			d.logger.Errorf("Telemetry publisher disabled: %v", err)
		}
	}

	return nil
}

func (d *Driver) startPublisher(config Config, cli *tcc.Client) error {
	opts := mqtt.NewClientOptions()
	opts.SetClientID("tcc-alpaca")
	opts.AddBroker(config.MQTT.Host)
	opts.SetUsername(config.MQTT.Username)
	opts.SetPassword(config.MQTT.Password)

	mqttCli := mqtt.NewClient(opts)
	if token := mqttCli.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %v", token.Error())
	}

	interval := time.Duration(config.PublishSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	pub := tcc.NewPublisher(mqttCli, cli, config.MQTT.TopicRoot, interval, d.logger)

	ctx, cancel := context.WithCancel(context.Background())
	d.mqttCli = mqttCli
	d.cancelPub = cancel
	go pub.Run(ctx)

	d.logger.Info("Telemetry publisher started")
	return nil
}

func (d *Driver) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != connStateConnected {
		return alpaca.ErrNotConnected
	}

	if d.cancelPub != nil {
		d.cancelPub()
		d.cancelPub = nil
	}
	if d.mqttCli != nil {
		d.mqttCli.Disconnect(100)
		d.mqttCli = nil
	}

	err := d.cli.Close()
	d.cli = nil
	d.state = connStateDisconnected
	d.logger.Info("Disconnected from TCC")
	return err
}

func (d *Driver) Connecting() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state == connStateConnecting
}

func (d *Driver) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state == connStateConnected
}

// client returns the protocol client while connected.
func (d *Driver) client() (*tcc.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != connStateConnected || d.cli == nil {
		return nil, alpaca.ErrNotConnected
	}
	return d.cli, nil
}

func (d *Driver) setTempComp(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tempComp = enabled
}

func (d *Driver) tempCompEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tempComp
}

func (d *Driver) config() Config {
	cfg, err := d.store.GetConfig()
	if err != nil {
		return defaultConfig
	}
	return cfg
}

// HandleSetup renders and processes the driver's setup form.
func (d *Driver) HandleSetup(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cfg, err := d.store.GetConfig()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		d.renderSetupForm(w, cfg, false, "")

	case http.MethodPost:
		cfg, err := parseSetupForm(r)
		if err != nil {
			d.renderSetupForm(w, cfg, false, err.Error())
			return
		}

		d.logger.Infof("Setting TCC config: %+v", cfg)
		if err := d.store.SetConfig(cfg); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		d.renderSetupForm(w, cfg, true, "")

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (d *Driver) renderSetupForm(w http.ResponseWriter, cfg Config, success bool, err string) {
	data := struct {
		Config
		Success bool
		Error   string
	}{cfg, success, err}

	if err := d.tmpl.ExecuteTemplate(w, "rcos_setup.html", data); err != nil {
		http.Error(w, "Error rendering template", http.StatusInternalServerError)
		d.logger.Errorf("Error rendering template: %v", err)
	}
}

func parseSetupForm(r *http.Request) (Config, error) {
	if err := r.ParseForm(); err != nil {
		return Config{}, fmt.Errorf("error parsing form: %v", err)
	}

	cfg := defaultConfig
	cfg.Port = r.FormValue("com-port")

	if v := r.FormValue("focuser-move-format"); v != "" {
		cfg.FocuserMoveFormat = v
	}
	if v := r.FormValue("rotator-move-format"); v != "" {
		cfg.RotatorMoveFormat = v
	}

	cfg.MaxStep, _ = strconv.Atoi(r.FormValue("max-step"))
	cfg.MaxIncrement, _ = strconv.Atoi(r.FormValue("max-increment"))
	cfg.PublishSeconds, _ = strconv.Atoi(r.FormValue("publish-seconds"))

	cfg.MQTT.Host = r.FormValue("mqtt-host")
	cfg.MQTT.Username = r.FormValue("mqtt-username")
	cfg.MQTT.Password = r.FormValue("mqtt-password")
	if v := r.FormValue("mqtt-topic-root"); v != "" {
		cfg.MQTT.TopicRoot = v
	}

	if cfg.Port == "" {
		return cfg, fmt.Errorf("serial port is required")
	}
	return cfg, nil
}
