// Command rfc4938ctl is the operator CLI for rfc4938d: it sends
// CLI_* control messages over local UDP using the §6.2 wire protocol
// and, for "show", waits for the daemon's response, §6.3.
package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/adjacentlink/rfc4938/ctlmsg"
)

var (
	ctlAddr string
	timeout time.Duration
	seq     uint32
)

var rootCmd = &cobra.Command{
	Use:           "rfc4938ctl",
	Short:         "operator CLI for rfc4938d",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&ctlAddr, "addr", "127.0.0.1:6002", "rfc4938d control address")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Second, "reply timeout")

	rootCmd.AddCommand(initiateCmd())
	rootCmd.AddCommand(terminateCmd())
	rootCmd.AddCommand(padgCmd())
	rootCmd.AddCommand(padqCmd())
	rootCmd.AddCommand(showCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func nextSeq() uint32 {
	seq++
	return seq
}

func sendOnly(msg []byte) error {
	conn, err := net.Dial("udp", ctlAddr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", ctlAddr, err)
	}
	defer conn.Close()
	_, err = conn.Write(msg)
	return err
}

func sendAndWait(msg []byte) ([]byte, error) {
	conn, err := net.Dial("udp", ctlAddr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", ctlAddr, err)
	}
	defer conn.Close()
	if _, err := conn.Write(msg); err != nil {
		return nil, err
	}
	conn.SetReadDeadline(time.Now().Add(timeout))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("reading reply from %s: %w", ctlAddr, err)
	}
	return buf[:n], nil
}

func parseNeighborID(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid neighbor id %q: %w", s, err)
	}
	return uint32(n), nil
}

func initiateCmd() *cobra.Command {
	var scalar uint16
	cmd := &cobra.Command{
		Use:   "initiate <neighbor-id>",
		Short: "start a session with a neighbor",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := parseNeighborID(args[0])
			if err != nil {
				return err
			}
			msg := ctlmsg.CLISessionInitiate{NeighborID: id, CreditScalar: scalar}.Encode(nextSeq())
			return sendOnly(msg)
		},
	}
	cmd.Flags().Uint16Var(&scalar, "scalar", 64, "credit scalar to advertise")
	return cmd
}

func terminateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "terminate <neighbor-id>",
		Short: "tear down a neighbor's session",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := parseNeighborID(args[0])
			if err != nil {
				return err
			}
			return sendOnly(ctlmsg.CLISessionTerminate{NeighborID: id}.Encode(nextSeq()))
		},
	}
}

func padgCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "padg <neighbor-id> <credits>",
		Short: "send an out-of-band credit grant to a neighbor",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := parseNeighborID(args[0])
			if err != nil {
				return err
			}
			credits, err := strconv.ParseUint(args[1], 10, 16)
			if err != nil {
				return fmt.Errorf("invalid credits %q: %w", args[1], err)
			}
			msg := ctlmsg.CLIPADG{NeighborID: id, Credits: uint16(credits)}.Encode(nextSeq())
			return sendOnly(msg)
		},
	}
}

func padqCmd() *cobra.Command {
	var rlq, resources uint8
	var latency uint16
	cmd := &cobra.Command{
		Use:   "padq <neighbor-id>",
		Short: "push a link-quality report into a neighbor's PADQ schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := parseNeighborID(args[0])
			if err != nil {
				return err
			}
			msg := ctlmsg.CLIPADQ{
				NeighborID: id,
				PADQ: ctlmsg.PADQ{
					RLQ:       rlq,
					Resources: resources,
					Latency:   latency,
				},
			}.Encode(nextSeq())
			return sendOnly(msg)
		},
	}
	cmd.Flags().Uint8Var(&rlq, "rlq", 100, "receive link quality (0-100)")
	cmd.Flags().Uint8Var(&resources, "resources", 100, "resource availability (0-100)")
	cmd.Flags().Uint16Var(&latency, "latency", 0, "latency in milliseconds")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "show the status of every known neighbor",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			reply, err := sendAndWait(ctlmsg.EncodeCLISessionShow(nextSeq()))
			if err != nil {
				return err
			}
			hdr, body, err := ctlmsg.DecodeHeader(reply)
			if err != nil {
				return err
			}
			if hdr.Cmd != ctlmsg.CmdCLISessionShowResponse {
				return fmt.Errorf("unexpected reply command %v", hdr.Cmd)
			}
			resp, err := ctlmsg.DecodeCLIShowResponse(body)
			if err != nil {
				return err
			}
			fmt.Println(resp.Text)
			return nil
		},
	}
}
