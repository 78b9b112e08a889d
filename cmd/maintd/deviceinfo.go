package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/conn-castle/maintd/internal/defs"
	"github.com/conn-castle/maintd/internal/messages"
)

var deviceInfoLines = []struct {
	label string
	key   string
}{
	{messages.CLIDeviceInfoLabelModel, defs.KeyProductModel},
	{messages.CLIDeviceInfoLabelVariant, defs.KeyProductVariant},
	{messages.CLIDeviceInfoLabelProd, defs.KeyProducer},
	{messages.CLIDeviceInfoLabelGTIN, defs.KeyProductGTIN},
	{messages.CLIDeviceInfoLabelSerial, defs.KeyUnitSerial},
	{messages.CLIDeviceInfoLabelPlat, defs.KeyPlatformName},
	{messages.CLIDeviceInfoLabelOS, defs.KeyPlatformOS},
	{messages.CLIDeviceInfoLabelFW, ""},
	{messages.CLIDeviceInfoLabelHost, defs.KeyUnitHostname},
	{messages.CLIDeviceInfoLabelIPv4, defs.KeyStatusIPv4},
}

// writeDeviceInfo prints the labeled identity lines. Labels are colored when colored is set.
func writeDeviceInfo(w io.Writer, store *defs.Store, colored bool) error {
	label := color.New(color.FgCyan)
	if colored {
		label.EnableColor()
	} else {
		label.DisableColor()
	}
	for _, line := range deviceInfoLines {
		value := store.Value(line.key)
		if line.key == "" {
			value = fmt.Sprintf(messages.CLIDeviceInfoFirmwareFmt, store.Value(defs.KeyFirmwareVersion), store.Value(defs.KeyFirmwareFeed))
		}
		padded := fmt.Sprintf(messages.CLIDeviceInfoLabelFmt, line.label)
		if _, err := fmt.Fprintf(w, messages.CLIDeviceInfoLineFmt, label.Sprint(padded), value); err != nil {
			return fmt.Errorf(messages.CLIWriteOutputFmt, err)
		}
	}
	return nil
}
