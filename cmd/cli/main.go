package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/semillero-service/internal/backend"
	"github.com/spec-kit/semillero-service/internal/config"
	"github.com/spec-kit/semillero-service/internal/domain"
	"github.com/spec-kit/semillero-service/internal/handoff"
	"github.com/spec-kit/semillero-service/internal/observability"
	"github.com/spec-kit/semillero-service/internal/repository"
	"github.com/spec-kit/semillero-service/internal/service"
	"github.com/spec-kit/semillero-service/internal/validation"
	"github.com/spec-kit/semillero-service/internal/workflow"
)

type shell struct {
	reader   *bufio.Reader
	sessions *service.SessionService
	id       string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg.Logger.Level = "warn"
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	verifier, err := backend.NewSimulatedVerifier(cfg.Auth.VerificationCode, cfg.Workflow.VerifyDelay(), cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal("failed to init verifier", zap.Error(err))
	}

	store := repository.NewSessionStore(cfg.Workflow.SessionTTL(), 0)
	defer store.Stop()

	forms := validation.New()
	sessions := service.NewSessionService(service.SessionDependencies{
		Store:       store,
		Machine:     workflow.New(forms),
		Verifier:    verifier,
		Preferences: backend.NewSimulatedPreferences(cfg.Workflow.PaymentDelay()),
		Handoff: handoff.NewDispatcher(handoff.NewCommandOpener(cfg.Handoff.Command), handoff.Options{
			AdminPhone:  cfg.Handoff.AdminPhone,
			CountryCode: cfg.Handoff.CountryCode,
			Delay:       cfg.Workflow.HandoffDelay(),
			Validator:   forms,
			Logger:      logger,
		}),
		Logger:  logger,
		Timeout: cfg.Workflow.OperationTimeout(),
	})

	ctx := context.Background()
	sh := &shell{reader: bufio.NewReader(os.Stdin), sessions: sessions}
	sh.id = sessions.Start(ctx).ID
	sh.run(ctx)
}

func (sh *shell) run(ctx context.Context) {
	for {
		sess, err := sh.sessions.Get(ctx, sh.id)
		if err != nil {
			fmt.Println("Sesión expirada:", err)
			return
		}
		fmt.Println()
		fmt.Println("==== El Semillero ====")
		var quit bool
		switch sess.Screen {
		case domain.ScreenLogin:
			quit = sh.login(ctx)
		case domain.ScreenVerify:
			sh.verify(ctx)
		case domain.ScreenDashboard:
			sh.dashboard(ctx, sess)
		case domain.ScreenInscription:
			sh.inscription(ctx, sess)
		}
		if quit {
			fmt.Println("Chau")
			return
		}
	}
}

func (sh *shell) login(ctx context.Context) bool {
	fmt.Println("1) Iniciar sesión")
	fmt.Println("2) Nueva inscripción")
	fmt.Println("3) Salir")
	switch sh.prompt("Opción: ") {
	case "1":
		in := domain.AuthInput{Email: sh.prompt("Correo: "), Password: sh.prompt("Contraseña: ")}
		sh.show(sh.sessions.EditAuth(ctx, sh.id, in))
		sh.show(sh.sessions.SubmitCredentials(ctx, sh.id))
	case "2":
		sh.show(sh.sessions.ChooseEnrollment(ctx, sh.id))
	case "3":
		return true
	default:
		fmt.Println("Opción inválida")
	}
	return false
}

func (sh *shell) verify(ctx context.Context) {
	sh.show(sh.sessions.SetVerificationCode(ctx, sh.id, sh.prompt("Código de verificación: ")))
	fmt.Println("Verificando...")
	sh.show(sh.sessions.SubmitCode(ctx, sh.id))
}

func (sh *shell) dashboard(ctx context.Context, sess domain.Session) {
	if sess.PaymentModalOpen && sess.SelectedPayment != nil {
		fmt.Printf("Confirmar pago: %s $%d\n", sess.SelectedPayment.Description, sess.SelectedPayment.Amount)
		if strings.EqualFold(sh.prompt("¿Pagar? (s/n): "), "s") {
			fmt.Println("Procesando...")
			sh.show(sh.sessions.ConfirmPayment(ctx, sh.id))
			return
		}
		sh.show(sh.sessions.CancelPayment(ctx, sh.id))
		return
	}

	catalog := sh.sessions.Catalog()
	for _, a := range catalog.Announcements {
		fmt.Printf("* %s (%s): %s\n", a.Title, a.Date, a.Description)
	}
	fmt.Println("Pagos pendientes:")
	for _, p := range catalog.Payments {
		fmt.Printf("%d) %s $%d\n", p.ID, p.Description, p.Amount)
	}
	fmt.Println("0) Cerrar sesión")

	choice := sh.prompt("Opción: ")
	if choice == "0" {
		sh.show(sh.sessions.Logout(ctx, sh.id))
		return
	}
	id, err := strconv.Atoi(choice)
	if err != nil {
		fmt.Println("Opción inválida")
		return
	}
	sh.show(sh.sessions.SelectPayment(ctx, sh.id, id))
}

func (sh *shell) inscription(ctx context.Context, sess domain.Session) {
	fmt.Println("1) Completar formulario")
	fmt.Println("2) Volver al inicio")
	if sh.prompt("Opción: ") == "2" {
		sh.show(sh.sessions.BackToStart(ctx, sh.id))
		return
	}

	in := sess.Enrollment
	in.StudentName = sh.prompt("Nombre del alumno: ")
	in.Age = sh.prompt("Edad: ")
	if g := sh.prompt("Género (masculino/femenino) [" + string(in.Gender) + "]: "); g != "" {
		in.Gender = domain.Gender(g)
	}
	in.ParentName = sh.prompt("Nombre del padre/madre/tutor: ")
	in.PhoneNumber = sh.prompt("Teléfono de contacto: ")
	sh.show(sh.sessions.EditEnrollment(ctx, sh.id, in))
	fmt.Println("Enviando...")
	sh.show(sh.sessions.SubmitEnrollment(ctx, sh.id))
}

func (sh *shell) prompt(label string) string {
	fmt.Print(label)
	line, err := sh.reader.ReadString('\n')
	if err != nil && line == "" {
		fmt.Println()
		os.Exit(0)
	}
	return strings.TrimSpace(line)
}

func (sh *shell) show(sess domain.Session, err error) {
	for field, msg := range sess.Errors {
		fmt.Printf("  %s: %s\n", field, msg)
	}
	if sess.Notice != nil {
		fmt.Printf("[%s] %s\n", sess.Notice.Title, sess.Notice.Message)
	} else if err != nil {
		fmt.Println("Error:", err)
	}
}
