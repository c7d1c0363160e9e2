package common

import "github.com/ternarybob/banner"

// PrintBanner prints the startup banner
func PrintBanner() {
	banner.PrintSimple("EchoDoc", GetVersion())
}
