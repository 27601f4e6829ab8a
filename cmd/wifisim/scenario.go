package main

import (
	"context"
	"errors"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"wificode-go/services/wifi/radio"
	"wificode-go/types"
)

// Scenario is a scripted radio environment.
type Scenario struct {
	APs      []radio.SimAP `yaml:"aps"`
	Networks []Network     `yaml:"networks"`
	Steps    []Step        `yaml:"steps"`
}

// Network is provisioned through wifi/control/add at startup.
type Network struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
}

// Step changes the environment At after start. Drop disconnects with the
// given reason code; APs, when present, replaces the visible set.
type Step struct {
	At   time.Duration  `yaml:"at"`
	Drop uint8          `yaml:"drop"`
	APs  *[]radio.SimAP `yaml:"aps"`
	Note string         `yaml:"note"`
}

func LoadScenario(path string) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	return ParseScenario(raw)
}

func ParseScenario(raw []byte) (Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return Scenario{}, err
	}
	for _, n := range sc.Networks {
		if n.SSID == "" {
			return Scenario{}, errors.New("scenario: network without ssid")
		}
	}
	sort.SliceStable(sc.Steps, func(i, j int) bool { return sc.Steps[i].At < sc.Steps[j].At })
	return sc, nil
}

// Play applies the steps to sim in order, scaling delays by 1/speed.
func (sc Scenario) Play(ctx context.Context, sim *radio.Sim, speed float64, onStep func(Step)) {
	if speed <= 0 {
		speed = 1
	}
	start := time.Now()
	for _, st := range sc.Steps {
		due := start.Add(time.Duration(float64(st.At) / speed))
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(due)):
		}
		if st.APs != nil {
			sim.SetAPs(*st.APs...)
		}
		if st.Drop != 0 {
			sim.DropLink(types.DisconnectReason(st.Drop))
		}
		if onStep != nil {
			onStep(st)
		}
	}
}
