package infra

import (
	"context"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
)

// BlockNotifier executa os efeitos colaterais de um bloqueio novo:
//
//   - escreve o artefato marcador dos-<ip> (com o pid) no diretório de log
//   - envia um e-mail via pipe para um mailer (padrão /bin/mail <to>)
//   - executa um comando externo com o ip substituído em %s
//
// Tudo é best-effort: falhas são logadas e nunca propagadas. As ações que
// criam processos passam por um rate.Limiter para uma onda de bloqueios não
// virar uma tempestade de forks no host.
type BlockNotifier struct {
	logDir  string
	mailTo  string
	mailer  []string
	command string
	limiter *rate.Limiter
}

type NotifierOption func(*BlockNotifier)

// WithLogDir define o diretório do artefato marcador ("" desliga o marcador).
func WithLogDir(dir string) NotifierOption {
	return func(n *BlockNotifier) { n.logDir = dir }
}

// WithMailTo define o destinatário das notificações ("" desliga o e-mail).
func WithMailTo(to string) NotifierOption {
	return func(n *BlockNotifier) { n.mailTo = to }
}

// WithMailer troca o comando do mailer (argv; o destinatário entra no final).
func WithMailer(argv ...string) NotifierOption {
	return func(n *BlockNotifier) { n.mailer = argv }
}

// WithSystemCommand define o comando externo; %s é substituído pelo ip.
func WithSystemCommand(tmpl string) NotifierOption {
	return func(n *BlockNotifier) { n.command = tmpl }
}

// WithNotifyRate limita as ações que criam processos (mail/comando).
func WithNotifyRate(perSecond float64, burst int) NotifierOption {
	return func(n *BlockNotifier) { n.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

func NewBlockNotifier(opts ...NotifierOption) *BlockNotifier {
	n := &BlockNotifier{
		logDir:  "/tmp",
		mailer:  []string{"/bin/mail"},
		limiter: rate.NewLimiter(1, 5),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify implementa domain.Notifier.
func (n *BlockNotifier) Notify(ctx context.Context, ip string) {
	log.Printf("evasive: blacklisting address %s: possible DoS attack", ip)

	if n.logDir != "" {
		n.writeMarker(ip)
	}

	if n.mailTo == "" && n.command == "" {
		return
	}
	if n.limiter != nil && !n.limiter.Allow() {
		log.Printf("evasive: notification actions throttled for %s", ip)
		return
	}

	if n.mailTo != "" {
		n.sendMail(ctx, ip)
	}
	if n.command != "" {
		n.runCommand(ctx, ip)
	}
}

func (n *BlockNotifier) writeMarker(ip string) {
	name := filepath.Join(n.logDir, "dos-"+ip)
	data := strconv.Itoa(os.Getpid()) + "\n"
	if err := os.WriteFile(name, []byte(data), 0o644); err != nil {
		log.Printf("evasive: couldn't write marker %s: %v", name, err)
	}
}

func (n *BlockNotifier) sendMail(ctx context.Context, ip string) {
	if len(n.mailer) == 0 {
		return
	}
	argv := append(append([]string{}, n.mailer...), n.mailTo)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(
		"To: " + n.mailTo + "\n" +
			"Subject: HTTP BLACKLIST " + ip + "\n\n" +
			"evasive-gateway blocked " + ip + "\n")
	if err := cmd.Run(); err != nil {
		log.Printf("evasive: mail notification for %s failed: %v", ip, err)
	}
}

func (n *BlockNotifier) runCommand(ctx context.Context, ip string) {
	line := strings.ReplaceAll(n.command, "%s", ip)

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", line)
	if err := cmd.Run(); err != nil {
		log.Printf("evasive: system command for %s failed: %v", ip, err)
	}
}

// MarkerPath é o caminho do artefato marcador para um ip (exposto para
// testes e ferramentas de limpeza).
func (n *BlockNotifier) MarkerPath(ip string) string {
	return filepath.Join(n.logDir, "dos-"+ip)
}
