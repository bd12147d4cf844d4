package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newStatsCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show totals across the whole ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rt.ledger(cmd.Context())
			if err != nil {
				return err
			}
			s, err := app.Queries.ObtenerEstadisticasGlobales(cmd.Context())
			if err != nil {
				return err
			}
			return rt.emit(cmd, s, func(w io.Writer) {
				tw := newTable(w)
				fmt.Fprintf(tw, "Fiados:\t%d\n", s.Total)
				fmt.Fprintf(tw, "Pendientes:\t%d\n", s.Pendientes)
				fmt.Fprintf(tw, "Parciales:\t%d\n", s.Parciales)
				fmt.Fprintf(tw, "Pagados:\t%d\n", s.Pagados)
				fmt.Fprintf(tw, "Monto total:\t%s\n", rt.monto(s.MontoTotal))
				fmt.Fprintf(tw, "Recuperado:\t%s\n", rt.monto(s.MontoRecuperado))
				fmt.Fprintf(tw, "Saldo pendiente:\t%s\n", rt.monto(s.SaldoPendiente))
				fmt.Fprintf(tw, "Pagos:\t%d\n", s.CantidadPagos)
				_ = tw.Flush()
			})
		},
	}
}
