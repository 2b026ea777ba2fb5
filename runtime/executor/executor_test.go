package executor_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opal-lang/bfi/core/ast"
	"github.com/opal-lang/bfi/runtime/executor"
	"github.com/opal-lang/bfi/runtime/parser"
)

const helloWorld = "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++."

func sp(start, end int) ast.Span { return ast.NewSpan(start, end) }

func mustParse(src string) *ast.Program {
	program, err := parser.ParseString(src)
	Expect(err).NotTo(HaveOccurred())
	return program
}

var _ = Describe("Executor", func() {
	var (
		out *bytes.Buffer
		ctx context.Context
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		ctx = context.Background()
	})

	run := func(program *ast.Program, input string, opts ...executor.Option) (*executor.Executor, error) {
		e := executor.New(strings.NewReader(input), out, opts...)
		return e, e.Execute(ctx, program)
	}

	Context("parsed programs", func() {
		It("should print hello world", func() {
			_, err := run(mustParse(helloWorld), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(out.String()).To(Equal("Hello World!\n"))
		})

		It("should echo input until a zero byte", func() {
			_, err := run(mustParse(",[.,]"), "abc\x00ignored")
			Expect(err).NotTo(HaveOccurred())
			Expect(out.String()).To(Equal("abc"))
		})

		It("should wrap cell arithmetic", func() {
			e, err := run(mustParse("-"), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Cell(0)).To(Equal(byte(255)))
		})

		It("should grow the tape to the left", func() {
			e, err := run(mustParse("<<+++>>+"), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Pointer()).To(Equal(0))
			Expect(e.Cell(-2)).To(Equal(byte(3)))
			Expect(e.Cell(0)).To(Equal(byte(1)))
		})

		It("should grow the tape far to the right", func() {
			e, err := run(ast.NewProgram([]ast.Node{
				ast.NewIncPtr(sp(0, 1), 100000),
				ast.NewInc(sp(1, 2), 7),
			}), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Cell(100000)).To(Equal(byte(7)))
		})
	})

	Context("classified nodes", func() {
		It("should assign with Set", func() {
			e, err := run(ast.NewProgram([]ast.Node{
				ast.NewInc(sp(0, 1), 9),
				ast.NewSet(sp(1, 2), 42),
			}), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Cell(0)).To(Equal(byte(42)))
		})

		It("should multiply-accumulate with Add and Sub", func() {
			e, err := run(ast.NewProgram([]ast.Node{
				ast.NewInc(sp(0, 1), 5),
				ast.NewAdd(sp(1, 2), 1, 3),
				ast.NewSub(sp(2, 3), -1, 2),
			}), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Cell(0)).To(Equal(byte(5)))
			Expect(e.Cell(1)).To(Equal(byte(15)))
			Expect(e.Cell(-1)).To(Equal(byte(246)))
			Expect(e.Pointer()).To(Equal(0))
		})

		It("should scan to a zero cell with SearchZero", func() {
			e, err := run(ast.NewProgram([]ast.Node{
				ast.NewInc(sp(0, 1), 1),
				ast.NewIncPtr(sp(1, 2), 2),
				ast.NewInc(sp(2, 3), 1),
				ast.NewDecPtr(sp(3, 4), 2),
				ast.NewSearchZero(sp(4, 7), 2),
			}), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Pointer()).To(Equal(4))
		})

		It("should step the induction cell of an ILoop", func() {
			// cell0 = 6, ILoop step 2 adds one to cell1 per iteration.
			e, err := run(ast.NewProgram([]ast.Node{
				ast.NewInc(sp(0, 1), 6),
				ast.NewILoop(sp(1, 8), []ast.Node{
					ast.NewIncPtr(sp(2, 3), 1),
					ast.NewInc(sp(3, 4), 1),
					ast.NewDecPtr(sp(4, 5), 1),
				}, 0, 2),
			}), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Cell(0)).To(Equal(byte(0)))
			Expect(e.Cell(1)).To(Equal(byte(3)))
		})

		It("should run a CLoop a fixed number of times and clear its guard", func() {
			e, err := run(ast.NewProgram([]ast.Node{
				ast.NewSet(sp(0, 1), 4),
				ast.NewCLoop(sp(1, 8), []ast.Node{ast.NewPutChar(sp(2, 3))}, 0, 4),
			}), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Bytes()).To(Equal([]byte{4, 4, 4, 4}))
			Expect(e.Cell(0)).To(Equal(byte(0)))
		})

		It("should run a TNz body at most once", func() {
			body := []ast.Node{ast.NewPutChar(sp(2, 3)), ast.NewSet(sp(3, 4), 0)}
			_, err := run(ast.NewProgram([]ast.Node{
				ast.NewTNz(sp(0, 5), body, 0),
				ast.NewInc(sp(5, 6), 65),
				ast.NewTNz(sp(6, 11), ast.CloneNodes(body), 0),
			}), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(out.String()).To(Equal("A"))
		})
	})

	Context("end of input", func() {
		DescribeTable("should apply the configured EOF mode",
			func(mode executor.EOFMode, want byte) {
				e, err := run(mustParse("+++++,"), "", executor.WithEOF(mode))
				Expect(err).NotTo(HaveOccurred())
				Expect(e.Cell(0)).To(Equal(want))
			},
			Entry("unchanged", executor.EOFUnchanged, byte(5)),
			Entry("zero", executor.EOFZero, byte(0)),
			Entry("max", executor.EOFMax, byte(255)),
		)

		It("should parse mode names", func() {
			for _, name := range executor.EOFModes {
				mode, ok := executor.ParseEOFMode(name)
				Expect(ok).To(BeTrue())
				Expect(mode.String()).To(Equal(name))
			}
			_, ok := executor.ParseEOFMode("eof")
			Expect(ok).To(BeFalse())
		})
	})

	Context("termination", func() {
		It("should stop at the step limit", func() {
			_, err := run(mustParse("+[]"), "", executor.WithStepLimit(1000))
			Expect(errors.Is(err, executor.ErrStepLimit)).To(BeTrue())

			var rerr *executor.RuntimeError
			Expect(errors.As(err, &rerr)).To(BeTrue())
			Expect(rerr.Span).To(Equal(sp(1, 3)))
		})

		It("should stop when the context is cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			ctx = cancelled

			_, err := run(mustParse("+[>+<]"), "")
			Expect(err).To(MatchError(context.Canceled))
		})

		It("should count steps", func() {
			e, err := run(mustParse("++[-]"), "")
			Expect(err).NotTo(HaveOccurred())
			// two Inc, the loop, two iterations, two Dec
			Expect(e.Steps()).To(Equal(7))
		})
	})

	Context("I/O failures", func() {
		var (
			ctrl   *gomock.Controller
			reader *MockReader
			writer *MockWriter
			boom   error
		)

		BeforeEach(func() {
			ctrl = gomock.NewController(GinkgoT())
			reader = NewMockReader(ctrl)
			writer = NewMockWriter(ctrl)
			boom = errors.New("boom")
		})

		AfterEach(func() {
			ctrl.Finish()
		})

		It("should wrap read failures with the span of the read", func() {
			reader.EXPECT().Read(gomock.Any()).Return(0, boom)

			err := executor.New(reader, out).Execute(ctx, mustParse("+ ,"))
			var rerr *executor.RuntimeError
			Expect(errors.As(err, &rerr)).To(BeTrue())
			Expect(rerr.Op).To(Equal("read"))
			Expect(rerr.Span).To(Equal(sp(2, 3)))
			Expect(errors.Is(err, boom)).To(BeTrue())
		})

		It("should flush pending output before reading", func() {
			gomock.InOrder(
				writer.EXPECT().Write([]byte("A")).Return(1, nil),
				reader.EXPECT().Read(gomock.Any()).Return(0, io.EOF),
			)

			program := ast.NewProgram([]ast.Node{
				ast.NewSet(sp(0, 1), 'A'),
				ast.NewPutChar(sp(1, 2)),
				ast.NewGetChar(sp(2, 3)),
			})
			Expect(executor.New(reader, writer).Execute(ctx, program)).To(Succeed())
		})

		It("should report write failures on flush", func() {
			writer.EXPECT().Write(gomock.Any()).Return(0, boom)

			err := executor.New(strings.NewReader(""), writer).Execute(ctx, mustParse("."))
			var rerr *executor.RuntimeError
			Expect(errors.As(err, &rerr)).To(BeTrue())
			Expect(rerr.Op).To(Equal("flush"))
			Expect(errors.Is(err, boom)).To(BeTrue())
		})
	})
})
