package cli

import (
	"fmt"
	"io"

	fiadoapp "github.com/kiosco/fiados/internal/application/fiado"
	"github.com/spf13/cobra"
)

func newClienteCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cliente",
		Aliases: []string{"clientes"},
		Short:   "Register clients and manage what they owe",
	}
	cmd.AddCommand(
		newClienteAddCommand(rt),
		newClienteListCommand(rt),
		newClienteFindCommand(rt),
		newClienteInterestCommand(rt),
		newClientePayoffCommand(rt),
		newClienteSummaryCommand(rt),
	)
	return cmd
}

func newClienteAddCommand(rt *runtime) *cobra.Command {
	var req fiadoapp.AgregarClienteRequest
	cmd := &cobra.Command{
		Use:   "add NOMBRE",
		Short: "Register a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.ledger(cmd.Context())
			if err != nil {
				return err
			}
			req.Nombre = args[0]
			c, err := app.Clientes.AgregarCliente(cmd.Context(), req)
			if err != nil {
				return err
			}
			return rt.emit(cmd, c, func(w io.Writer) {
				fmt.Fprintf(w, "Cliente %s registrado (%s)\n", c.Nombre, c.ID)
			})
		},
	}
	cmd.Flags().StringVar(&req.Telefono, "telefono", "", "Phone number")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Direccion, "direccion", "", "Street address")
	cmd.Flags().StringVar(&req.Notas, "notas", "", "Free-form notes")
	return cmd
}

func newClienteListCommand(rt *runtime) *cobra.Command {
	var activos bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clients by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rt.ledger(cmd.Context())
			if err != nil {
				return err
			}
			clientes, err := app.Clientes.ListarClientes(cmd.Context(), activos)
			if err != nil {
				return err
			}
			return rt.emit(cmd, clientes, func(w io.Writer) {
				if len(clientes) == 0 {
					fmt.Fprintln(w, "No hay clientes")
					return
				}
				tw := newTable(w)
				fmt.Fprintln(tw, "ID\tNOMBRE\tTELEFONO\tACTIVO")
				for _, c := range clientes {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", c.ID, c.Nombre, c.Telefono, c.Activo)
				}
				_ = tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&activos, "activos", false, "Only active clients")
	return cmd
}

func newClienteFindCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "find NOMBRE",
		Short: "Look a client up by exact name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.ledger(cmd.Context())
			if err != nil {
				return err
			}
			c, err := app.Clientes.BuscarClientePorNombre(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return rt.emit(cmd, c, func(w io.Writer) {
				tw := newTable(w)
				fmt.Fprintf(tw, "ID:\t%s\n", c.ID)
				fmt.Fprintf(tw, "Nombre:\t%s\n", c.Nombre)
				if c.Telefono != "" {
					fmt.Fprintf(tw, "Telefono:\t%s\n", c.Telefono)
				}
				if c.Email != "" {
					fmt.Fprintf(tw, "Email:\t%s\n", c.Email)
				}
				if c.Direccion != "" {
					fmt.Fprintf(tw, "Direccion:\t%s\n", c.Direccion)
				}
				fmt.Fprintf(tw, "Activo:\t%t\n", c.Activo)
				_ = tw.Flush()
			})
		},
	}
}

func newClienteInterestCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "interest CLIENTE PORCENTAJE",
		Short: "Add interest to every open fiado of a client",
		Long: `Adds PORCENTAJE points to the interest rate of each Pendiente or Parcial
fiado of the client and recomputes totals. Amounts already collected are kept.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.ledger(cmd.Context())
			if err != nil {
				return err
			}
			clienteID, err := resolveCliente(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			pct, err := parseRate(args[1])
			if err != nil {
				return err
			}
			res, err := app.Ledger.AplicarInteresCliente(cmd.Context(), clienteID,
				fiadoapp.AplicarInteresRequest{PorcentajeInteres: pct})
			if err != nil {
				return err
			}
			return rt.emit(cmd, res, func(w io.Writer) {
				fmt.Fprintf(w, "Interes de %s aplicado a %d fiados (+%s)\n",
					rt.porcentaje(res.PorcentajeAplicado), res.FiadosActualizados, rt.monto(res.TotalInteresMonto))
				tw := newTable(w)
				fmt.Fprintln(tw, "FIADO\tTOTAL ANTERIOR\tTOTAL NUEVO\tSALDO")
				for _, d := range res.Detalle {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.FiadoID,
						rt.monto(d.MontoTotalAnterior), rt.monto(d.MontoTotalNuevo), rt.monto(d.SaldoNuevo))
				}
				_ = tw.Flush()
			})
		},
	}
}

func newClientePayoffCommand(rt *runtime) *cobra.Command {
	var nota string
	cmd := &cobra.Command{
		Use:   "payoff CLIENTE MONTO",
		Short: "Settle everything a client owes in one payment",
		Long: `Pays every open fiado of the client in full, oldest first. MONTO must
match the client's outstanding total to the cent.`,
		Args: cobra.ExactArgs(2),
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
			res, err := app.Ledger.PagarTodoCliente(cmd.Context(), clienteID,
				fiadoapp.PagarTodoRequest{MontoTotal: monto, Nota: nota})
			if err != nil {
				return err
			}
			return rt.emit(cmd, res, func(w io.Writer) {
				fmt.Fprintf(w, "%s pago %s y saldo %d fiados\n",
					res.ClienteNombre, rt.monto(res.TotalPagado), res.CantidadFiados)
			})
		},
	}
	cmd.Flags().StringVar(&nota, "nota", "", "Note stored on every payment")
	return cmd
}

func newClienteSummaryCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "summary CLIENTE",
		Short: "Show what a client owes and has paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.ledger(cmd.Context())
			if err != nil {
				return err
			}
			clienteID, err := resolveCliente(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			res, err := app.Queries.ObtenerResumenCliente(cmd.Context(), clienteID)
			if err != nil {
				return err
			}
			return rt.emit(cmd, res, func(w io.Writer) {
				r := res.ResumenFiados
				tw := newTable(w)
				fmt.Fprintf(tw, "Cliente:\t%s\n", res.Cliente.Nombre)
				fmt.Fprintf(tw, "Fiados:\t%d (pendientes %d, parciales %d, pagados %d)\n",
					r.TotalFiados, r.Pendientes, r.Parciales, r.Pagados)
				fmt.Fprintf(tw, "Total fiado:\t%s\n", rt.monto(r.TotalDeuda))
				fmt.Fprintf(tw, "Total pagado:\t%s\n", rt.monto(r.TotalPagado))
				fmt.Fprintf(tw, "Saldo pendiente:\t%s\n", rt.monto(r.SaldoPendiente))
				fmt.Fprintf(tw, "Pagos:\t%d\n", res.CantidadPagos)
				_ = tw.Flush()
				fmt.Fprintln(w)
				rt.printFiados(w, res.Fiados)
			})
		},
	}
}
