package cli

import (
	"errors"
	"fmt"
	"io"

	fiadoapp "github.com/kiosco/fiados/internal/application/fiado"
	"github.com/spf13/cobra"
)

func newFiadoCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "fiado",
		Aliases: []string{"fiados"},
		Short:   "Extend credit and record payments",
	}
	cmd.AddCommand(
		newFiadoCreateCommand(rt),
		newFiadoListCommand(rt),
		newFiadoShowCommand(rt),
		newFiadoEditCommand(rt),
		newFiadoDeleteCommand(rt),
		newFiadoPayCommand(rt),
		newFiadoHistoryCommand(rt),
	)
	return cmd
}

func newFiadoCreateCommand(rt *runtime) *cobra.Command {
	var (
		interes string
		nombre  string
		nota    string
	)
	cmd := &cobra.Command{
		Use:   "create CLIENTE MONTO",
		Short: "Extend credit to a client",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.ledger(cmd.Context())
			if err != nil {
				return err
			}
			clienteID, err := resolveCliente(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			monto, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			pct, err := parseRate(interes)
			if err != nil {
				return err
			}
			f, err := app.Ledger.CrearFiado(cmd.Context(), fiadoapp.CrearFiadoRequest{
				ClienteID:         clienteID,
				ClienteNombre:     nombre,
				MontoOriginal:     monto,
				InteresPorcentaje: pct,
				Nota:              nota,
			})
			if err != nil {
				return err
			}
			return rt.emit(cmd, f, func(w io.Writer) {
				fmt.Fprintf(w, "Fiado %s creado para %s por %s\n", f.ID, f.ClienteNombre, rt.monto(f.MontoTotal))
			})
		},
	}
	cmd.Flags().StringVar(&interes, "interes", "0", "Interest percentage applied to the principal")
	cmd.Flags().StringVar(&nombre, "nombre", "", "Client name recorded on the fiado (default: current client name)")
	cmd.Flags().StringVar(&nota, "nota", "", "Free-form note")
	return cmd
}

func newFiadoListCommand(rt *runtime) *cobra.Command {
	var (
		estado  string
		cliente string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List fiados, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rt.ledger(cmd.Context())
			if err != nil {
				return err
			}
			filter := fiadoapp.FiadoListFilter{Estado: estado}
			if cliente != "" {
				id, err := resolveCliente(cmd.Context(), app, cliente)
				if err != nil {
					return err
				}
				filter.ClienteID = id.String()
			}
			fiados, err := app.Queries.ObtenerFiados(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return rt.emit(cmd, fiados, func(w io.Writer) {
				rt.printFiados(w, fiados)
			})
		},
	}
	cmd.Flags().StringVar(&estado, "estado", "", "Only fiados in this state (Pendiente, Parcial, Pagado)")
	cmd.Flags().StringVar(&cliente, "cliente", "", "Only fiados of this client (id or exact name)")
	return cmd
}

func newFiadoShowCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show FIADO",
		Short: "Show one fiado",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.ledger(cmd.Context())
			if err != nil {
				return err
			}
			id, err := parseID(args[0], "fiado")
			if err != nil {
				return err
			}
			f, err := app.Queries.ObtenerFiado(cmd.Context(), id)
			if err != nil {
				return err
			}
			return rt.emit(cmd, f, func(w io.Writer) {
				rt.printFiado(w, f)
			})
		},
	}
}

func newFiadoEditCommand(rt *runtime) *cobra.Command {
	var (
		monto   string
		interes string
		nota    string
	)
	cmd := &cobra.Command{
		Use:   "edit FIADO",
		Short: "Correct the principal, interest or note of an unpaid fiado",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.ledger(cmd.Context())
			if err != nil {
				return err
			}
			id, err := parseID(args[0], "fiado")
			if err != nil {
				return err
			}

			var req fiadoapp.ModificarFiadoRequest
			flags := cmd.Flags()
			if flags.Changed("monto") {
				d, err := parseAmount(monto)
				if err != nil {
					return err
				}
				req.MontoOriginal = &d
			}
			if flags.Changed("interes") {
				d, err := parseRate(interes)
				if err != nil {
					return err
				}
				req.InteresPorcentaje = &d
			}
			if flags.Changed("nota") {
				req.Nota = &nota
			}
			if req.MontoOriginal == nil && req.InteresPorcentaje == nil && req.Nota == nil {
				return errors.New("nothing to change: pass --monto, --interes or --nota")
			}

			f, err := app.Ledger.ModificarFiado(cmd.Context(), id, req)
			if err != nil {
				return err
			}
			return rt.emit(cmd, f, func(w io.Writer) {
				rt.printFiado(w, f)
			})
		},
	}
	cmd.Flags().StringVar(&monto, "monto", "", "New principal")
	cmd.Flags().StringVar(&interes, "interes", "", "New interest percentage")
	cmd.Flags().StringVar(&nota, "nota", "", "New note")
	return cmd
}

func newFiadoDeleteCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete FIADO",
		Short: "Delete an unpaid fiado and its payments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.ledger(cmd.Context())
			if err != nil {
				return err
			}
			id, err := parseID(args[0], "fiado")
			if err != nil {
				return err
			}
			if err := app.Ledger.EliminarFiado(cmd.Context(), id); err != nil {
				return err
			}
			return rt.emit(cmd, map[string]string{"eliminado": id.String()}, func(w io.Writer) {
				fmt.Fprintf(w, "Fiado %s eliminado\n", id)
			})
		},
	}
}

func newFiadoPayCommand(rt *runtime) *cobra.Command {
	var nota string
	cmd := &cobra.Command{
		Use:   "pay FIADO MONTO",
		Short: "Record a payment against a fiado",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.ledger(cmd.Context())
			if err != nil {
				return err
			}
			id, err := parseID(args[0], "fiado")
			if err != nil {
				return err
			}
			monto, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			res, err := app.Ledger.RegistrarPago(cmd.Context(), id,
				fiadoapp.RegistrarPagoRequest{Monto: monto, Nota: nota})
			if err != nil {
				return err
			}
			return rt.emit(cmd, res, func(w io.Writer) {
				fmt.Fprintf(w, "Pago de %s registrado para %s. Saldo: %s (%s)\n",
					rt.monto(res.MontoPagado), res.Cliente, rt.monto(res.SaldoRestante), res.Estado)
			})
		},
	}
	cmd.Flags().StringVar(&nota, "nota", "", "Note stored with the payment")
	return cmd
}

func newFiadoHistoryCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "history FIADO",
		Short: "List the payments of a fiado, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.ledger(cmd.Context())
			if err != nil {
				return err
			}
			id, err := parseID(args[0], "fiado")
			if err != nil {
				return err
			}
			pagos, err := app.Queries.ObtenerHistorialFiado(cmd.Context(), id)
			if err != nil {
				return err
			}
			return rt.emit(cmd, pagos, func(w io.Writer) {
				rt.printPagos(w, pagos)
			})
		},
	}
}
