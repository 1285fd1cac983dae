package netlink

import (
	"fmt"
	"os/exec"
	"strings"
)

// NMCLIRadio drives the link through NetworkManager's CLI. There is no
// Wi-Fi management library to speak of on Linux; nmcli is the stable
// surface every distribution ships.
type NMCLIRadio struct {
	Iface string
	SSID  string
	PSK   string
}

func (r *NMCLIRadio) Status() (bool, string, error) {
	out, err := exec.Command("nmcli", "-t", "-f", "GENERAL.STATE,IP4.ADDRESS", "device", "show", r.Iface).Output()
	if err != nil {
		return false, "", fmt.Errorf("nmcli device show %s: %w", r.Iface, err)
	}
	up, addr := parseDeviceShow(string(out))
	return up, addr, nil
}

func (r *NMCLIRadio) Connect() error {
	args := []string{"device", "wifi", "connect", r.SSID, "ifname", r.Iface}
	if r.PSK != "" {
		args = append(args, "password", r.PSK)
	}
	if out, err := exec.Command("nmcli", args...).CombinedOutput(); err != nil {
		return fmt.Errorf("nmcli connect %s: %w (%s)", r.SSID, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// parseDeviceShow reads `nmcli -t -f GENERAL.STATE,IP4.ADDRESS device show`
// terse output, e.g.
//
//	GENERAL.STATE:100 (connected)
//	IP4.ADDRESS[1]:192.168.4.17/24
func parseDeviceShow(out string) (up bool, addr string) {
	for _, line := range strings.Split(out, "\n") {
		key, val, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		switch {
		case key == "GENERAL.STATE":
			up = strings.Contains(val, "(connected)")
		case strings.HasPrefix(key, "IP4.ADDRESS") && addr == "":
			addr, _, _ = strings.Cut(val, "/")
		}
	}
	if !up {
		return false, ""
	}
	return true, addr
}
