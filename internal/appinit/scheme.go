package appinit

// URLScheme is the scheme handled by the shell.
const URLScheme = "clash"

// InitScheme registers the running executable as the handler of clash:// links.
func InitScheme() error {
	return registerScheme()
}
