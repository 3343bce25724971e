package source

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	sshc "golang.org/x/crypto/ssh"
)

// SSH reads remote files over an SSH connection using the `cat` command.
type SSH struct {
	conn  *sshc.Client
	paths []string
}

// NewSSH dials addr with the given user and private-key file.
func NewSSH(addr, user, privateKeyPath string, paths []string) (*SSH, error) {
	key, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("source: read private key %s: %w", privateKeyPath, err)
	}
	signer, err := sshc.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("source: parse private key %s: %w", privateKeyPath, err)
	}
	cfg := &sshc.ClientConfig{
		User:            user,
		Auth:            []sshc.AuthMethod{sshc.PublicKeys(signer)},
		HostKeyCallback: sshc.InsecureIgnoreHostKey(),
	}
	conn, err := sshc.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("source: dial %s: %w", addr, err)
	}
	return &SSH{conn: conn, paths: paths}, nil
}

func (s *SSH) Kind() Kind   { return KindSSH }
func (s *SSH) Path() string { return "" }

func (s *SSH) Members() ([]Member, error) {
	members := make([]Member, len(s.paths))
	for i, p := range s.paths {
		members[i] = Member{Path: p, PseudoPath: "ssh:" + p, Fields: map[string]string{"host": filepath.Base(p)}}
	}
	return members, nil
}

func (s *SSH) Open(m Member) (io.ReadCloser, error) {
	session, err := s.conn.NewSession()
	if err != nil {
		return nil, fmt.Errorf("source: new ssh session: %w", err)
	}
	defer session.Close()

	var out bytes.Buffer
	session.Stdout = &out
	if err := session.Run("cat " + shellQuote(m.Path)); err != nil {
		return nil, fmt.Errorf("source: cat %s over ssh: %w", m.Path, err)
	}
	return io.NopCloser(&out), nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
