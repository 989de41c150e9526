package app

import (
	"fmt"
	"image"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/weed_mapper/internal/config"
	"github.com/relabs-tech/weed_mapper/internal/gps"
	"github.com/relabs-tech/weed_mapper/internal/ledger"
)

const (
	displayWidth  = 128
	displayHeight = 64
)

// DisplayData holds the latest data for display
type DisplayData struct {
	mu sync.RWMutex

	fix     gps.Fix
	haveFix bool

	weeds    int
	lastWeed string
}

type displaySnapshot struct {
	fix      gps.Fix
	haveFix  bool
	weeds    int
	lastWeed string
}

func (d *DisplayData) setFix(f gps.Fix) {
	d.mu.Lock()
	d.fix = f
	d.haveFix = true
	d.mu.Unlock()
}

func (d *DisplayData) addWeed(e ledger.WeedEntry) {
	d.mu.Lock()
	d.weeds++
	d.lastWeed = e.WeedType
	d.mu.Unlock()
}

func (d *DisplayData) snapshot() displaySnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return displaySnapshot{fix: d.fix, haveFix: d.haveFix, weeds: d.weeds, lastWeed: d.lastWeed}
}

// RunDisplay shows the robot's position and weed count on an SSD1306
// OLED until Ctrl+C.
func RunDisplay(cfg *config.Config, logger *zap.SugaredLogger) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, cfg.DisplayI2CAddr, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	logger.Infof("display initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := drawImage(dev, renderSplash()); err != nil {
		logger.Warnf("error showing splash: %v", err)
	}

	data := &DisplayData{}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := subscribeJSON(client, cfg.TopicGPS, logger, data.setFix); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicWeeds, logger, data.addWeed); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	logger.Info("starting display update loop")
	for {
		select {
		case <-sigCh:
			logger.Info("display shutting down")
			return dev.Halt()
		case <-ticker.C:
			if err := drawImage(dev, renderStatus(data.snapshot())); err != nil {
				logger.Warnf("error updating display: %v", err)
			}
		}
	}
}

func drawImage(dev *ssd1306.Dev, img *image1bit.VerticalLSB) error {
	return dev.Draw(dev.Bounds(), img, image.Point{})
}

// textImage renders one line of text per entry, 13 px apart, starting at
// the given x offsets (0 when missing).
func textImage(lines []string, xs ...int) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		x := 0
		if i < len(xs) {
			x = xs[i]
		}
		drawer.Dot = fixed.P(x, 13*(i+1))
		drawer.DrawString(line)
	}
	return img
}

func renderSplash() *image1bit.VerticalLSB {
	return textImage([]string{"", "Weed Mapper", "Looking for", "sats"}, 0, 20, 25, 50)
}

func renderStatus(s displaySnapshot) *image1bit.VerticalLSB {
	if !s.haveFix {
		return textImage([]string{"", "GPS Position", "Waiting...", weedLine(s)})
	}
	return textImage([]string{
		hemi(s.fix.Latitude, "N", "S"),
		hemi(s.fix.Longitude, "E", "W"),
		fmt.Sprintf("Alt: %.0fm", s.fix.Altitude),
		weedLine(s),
	})
}

func hemi(v float64, pos, neg string) string {
	if v < 0 {
		return fmt.Sprintf("%.5f%s", -v, neg)
	}
	return fmt.Sprintf("%.5f%s", v, pos)
}

func weedLine(s displaySnapshot) string {
	if s.weeds == 0 {
		return "Weeds: 0"
	}
	return fmt.Sprintf("Weeds: %d %s", s.weeds, s.lastWeed)
}
