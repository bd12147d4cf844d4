package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	fiadoapp "github.com/kiosco/fiados/internal/application/fiado"
	"github.com/kiosco/fiados/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/text/number"
)

var nowFunc = time.Now

const dateLayout = "2006-01-02 15:04"

// monto formats an amount with two decimals in the selected language,
// e.g. "3.850,00" for es and "3,850.00" for en.
func (rt *runtime) monto(m fiadoapp.Monto) string {
	return rt.printer.Sprint(number.Decimal(m.InexactFloat64(), number.Scale(2)))
}

func (rt *runtime) porcentaje(d decimal.Decimal) string {
	return rt.printer.Sprint(number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(2))) + "%"
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func parseID(arg, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q", what, arg)
	}
	return id, nil
}

// parseAmount reads a command line amount in whole cents
func parseAmount(arg string) (decimal.Decimal, error) {
	return shared.ParseAmount(arg)
}

// parseRate reads a command line interest percentage
func parseRate(arg string) (decimal.Decimal, error) {
	return shared.ParseRate(arg)
}

// resolveCliente accepts a client id or an exact client name
func resolveCliente(ctx context.Context, app *App, arg string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}
	c, err := app.Clientes.BuscarClientePorNombre(ctx, arg)
	if err != nil {
		return uuid.Nil, err
	}
	return c.ID, nil
}

func (rt *runtime) printFiado(w io.Writer, f *fiadoapp.FiadoResponse) {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%s\n", f.ID)
	fmt.Fprintf(tw, "Cliente:\t%s\n", f.ClienteNombre)
	fmt.Fprintf(tw, "Monto original:\t%s\n", rt.monto(f.MontoOriginal))
	fmt.Fprintf(tw, "Interes:\t%s\n", rt.porcentaje(f.InteresPorcentaje))
	fmt.Fprintf(tw, "Monto total:\t%s\n", rt.monto(f.MontoTotal))
	fmt.Fprintf(tw, "Pagado:\t%s (%s)\n", rt.monto(f.MontoPagado), rt.porcentaje(f.PorcentajePagado))
	fmt.Fprintf(tw, "Saldo pendiente:\t%s\n", rt.monto(f.SaldoPendiente))
	fmt.Fprintf(tw, "Estado:\t%s\n", f.Estado)
	if f.Nota != "" {
		fmt.Fprintf(tw, "Nota:\t%s\n", f.Nota)
	}
	fmt.Fprintf(tw, "Creado:\t%s\n", f.FechaCreacion.Local().Format(dateLayout))
	if f.FechaCompletado != nil {
		fmt.Fprintf(tw, "Completado:\t%s\n", f.FechaCompletado.Local().Format(dateLayout))
	}
	_ = tw.Flush()
}

func (rt *runtime) printFiados(w io.Writer, fiados []fiadoapp.FiadoResponse) {
	if len(fiados) == 0 {
		fmt.Fprintln(w, "No hay fiados")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tCLIENTE\tTOTAL\tPAGADO\tSALDO\tESTADO\tCREADO")
	for i := range fiados {
		f := &fiados[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			f.ID, f.ClienteNombre, rt.monto(f.MontoTotal), rt.monto(f.MontoPagado),
			rt.monto(f.SaldoPendiente), f.Estado, f.FechaCreacion.Local().Format(dateLayout))
	}
	_ = tw.Flush()
}

func (rt *runtime) printPagos(w io.Writer, pagos []fiadoapp.PagoResponse) {
	if len(pagos) == 0 {
		fmt.Fprintln(w, "Sin pagos registrados")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "FECHA\tMONTO\tNOTA")
	for _, p := range pagos {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Fecha.Local().Format(dateLayout), rt.monto(p.Monto), p.Nota)
	}
	_ = tw.Flush()
}
