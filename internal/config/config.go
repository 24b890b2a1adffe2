package config

import (
	"bufio"
	"bytes"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultBaseDirectoryPath is where both scatterfs daemons store
// configuration and data. It defaults to $SCATTERFS_BASE if it is set,
// otherwise it defaults to $HOME/lib/scatterfs. Commands override this
// via the -base flag.
var DefaultBaseDirectoryPath string

func init() {
	if base := os.Getenv("SCATTERFS_BASE"); base != "" {
		DefaultBaseDirectoryPath = base
	} else {
		DefaultBaseDirectoryPath = os.ExpandEnv("$HOME/lib/scatterfs")
	}
}

type C struct {
	// Address of the naming server's registration interface, e.g.,
	// "naming.internal:6001". Only meaningful for storaged.
	NamingAddr string

	// Hostname to advertise to the naming server; must be routable
	// from clients and from the naming server. Defaults to
	// "127.0.0.1", which is only good for single-host setups.
	ListenHost string

	// Ports for the naming server's two interfaces. Zero means the
	// well-known defaults.
	ServicePort      int
	RegistrationPort int

	// Directory holding the files served by storaged when the backend
	// is "disk". If the path is relative, it will be assumed relative
	// to the base dir.
	RootDir string

	// Byte store type - can be "disk" or "s3" at present.
	Backend string

	// These only make sense if the backend is "s3".
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	// Directory holding the scatterfs config file and other files.
	// Other directories and files are derived from this.
	base string
}

// Load loads the configuration from the file called "config" in the
// provided base directory.
func Load(base string) (*C, error) {
	filename := filepath.Join(base, "config")
	if fi, err := os.Stat(filename); err != nil {
		return nil, errorf("Load", "%v", err)
	} else if fi.Mode()&0077 != 0 {
		return nil, errorf("Load", "%q: mode is %#o, want at most %#o",
			filename, fi.Mode()&0777, fi.Mode()&0700)
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func() {
		// Ignore error closing file opened only for reading.
		_ = f.Close()
	}()
	c, err := load(f)
	if err != nil {
		return nil, err
	}
	c.base = base
	if c.ListenHost == "" {
		c.ListenHost = "127.0.0.1"
	}
	if c.RootDir != "" && !filepath.IsAbs(c.RootDir) {
		c.RootDir = filepath.Clean(filepath.Join(c.base, c.RootDir))
	}
	if c.RootDir == "" {
		c.RootDir = filepath.Join(c.base, "root")
	}
	return c, nil
}

func load(f io.Reader) (*C, error) {
	c := C{}
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		i := strings.IndexAny(line, " 	")
		if i == -1 {
			return nil, errorf("load", "no separator in %q", line)
		}
		key, val := line[:i], strings.TrimSpace(line[i:])
		var err error
		switch key {
		case "naming-addr":
			c.NamingAddr = val
		case "listen-host":
			c.ListenHost = val
		case "service-port":
			c.ServicePort, err = strconv.Atoi(val)
		case "registration-port":
			c.RegistrationPort, err = strconv.Atoi(val)
		case "root-dir":
			c.RootDir = val
		case "backend":
			c.Backend = val
		case "s3-region":
			c.S3Region = val
		case "s3-bucket":
			c.S3Bucket = val
		case "s3-access-key":
			c.S3AccessKey = val
		case "s3-secret-key":
			c.S3SecretKey = val
		default:
			return nil, errorf("load", "unknown key %q", key)
		}
		if err != nil {
			return nil, errorf("load", "%q: %v", line, err)
		}
	}
	if err := s.Err(); err != nil {
		return nil, errorf("load", "%v", err)
	}
	return &c, nil
}

func (c *C) Base() string { return c.base }

// Initialize generates an initial configuration at the given
// directory.
func Initialize(baseDir string) error {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return errorf("Initialize", "%q: could not mkdir: %v", baseDir, err)
	}
	path := filepath.Join(baseDir, "config")
	_, err := os.Stat(path)
	if err == nil {
		return errorf("Initialize", "%q: already exists", path)
	}
	if !os.IsNotExist(err) {
		return errorf("Initialize", "%q: could not determine if it exists: %v", path, err)
	}
	var buf bytes.Buffer
	buf.WriteString("# Address of the naming server, for storaged.\n")
	buf.WriteString("naming-addr 127.0.0.1:6001\n")
	buf.WriteString("listen-host 127.0.0.1\n")
	buf.WriteString("backend disk\n")
	buf.WriteString("root-dir root\n")
	err = ioutil.WriteFile(path, buf.Bytes(), 0600)
	if err != nil {
		return errorf("Initialize", "%q: %v", path, err)
	}
	return nil
}
